package domain

import (
	"fmt"
	"regexp"
	"strings"

	"dddkit/core"
	"dddkit/pkg/errs"
)

var templateParamRegexp = regexp.MustCompile(`\{([^{}]*)\}`)
var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrorDefinition is a registered domain error class: a named error within a
// domain with a message template. Instances are created with New and matched
// back to their definition with errors.Is.
//
// Example:
//
//	var ErrUserNotFound = domain.MustRegisterError(
//	    "users", "UserNotFound", "user {reference} not found")
//
//	err, _ := ErrUserNotFound.New(core.Payload{"reference": ref})
//	// err.Error() == "user 123... not found"
//	// errors.Is(err, ErrUserNotFound) == true
type ErrorDefinition struct {
	domain   core.DomainName
	name     core.MessageName
	template string
	params   []string
}

// RegisterError registers a domain error class. The template may contain
// {param} placeholders; every named parameter becomes required when creating
// instances. Registering a second class under an occupied (domain, name) pair
// fails.
func RegisterError(domainName, name, template string) (*ErrorDefinition, error) {
	domain, err := core.NewDomainName(domainName)
	if err != nil {
		return nil, err
	}
	errorName, err := core.NewMessageName(name)
	if err != nil {
		return nil, err
	}
	params, err := templateParams(template)
	if err != nil {
		return nil, err
	}

	def := &ErrorDefinition{
		domain:   domain,
		name:     errorName,
		template: template,
		params:   params,
	}

	r := defaultRegistry
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.errDefs[domain][errorName]; existing != nil {
		return nil, fmt.Errorf("other %s class for %q domain with name %q already registered",
			categoryError, domain, errorName)
	}
	defs, ok := r.errDefs[domain]
	if !ok {
		defs = map[core.MessageName]*ErrorDefinition{}
		r.errDefs[domain] = defs
	}
	defs[errorName] = def
	return def, nil
}

// MustRegisterError is RegisterError panicking on error, for use in package
// init functions and var blocks.
func MustRegisterError(domainName, name, template string) *ErrorDefinition {
	def, err := RegisterError(domainName, name, template)
	if err != nil {
		panic(err)
	}
	return def
}

// GetErrorDefinition returns the registered error class for the given domain
// and name. The returned error unwraps to errs.ErrObjectNotFound when none is
// registered.
func GetErrorDefinition(domain core.DomainName, name core.MessageName) (*ErrorDefinition, error) {
	r := defaultRegistry
	r.mu.RLock()
	defer r.mu.RUnlock()
	def := r.errDefs[domain][name]
	if def == nil {
		return nil, errs.NewObjectNotFoundErrorWithCause(string(categoryError), core.FullName(domain, name),
			fmt.Errorf("%s class for %q domain with name %q not registered", categoryError, domain, name))
	}
	return def, nil
}

// GetOrCreateErrorDefinition returns the registered error class for the given
// domain and name, registering one with the given template when it does not
// exist yet.
func GetOrCreateErrorDefinition(domainName, name, template string) (*ErrorDefinition, error) {
	domain, err := core.NewDomainName(domainName)
	if err != nil {
		return nil, err
	}
	errorName, err := core.NewMessageName(name)
	if err != nil {
		return nil, err
	}
	if def, lookupErr := GetErrorDefinition(domain, errorName); lookupErr == nil {
		return def, nil
	}
	return RegisterError(domainName, name, template)
}

// Domain returns the domain the error class belongs to.
func (d *ErrorDefinition) Domain() core.DomainName {
	return d.domain
}

// Name returns the name of the error class within its domain.
func (d *ErrorDefinition) Name() core.MessageName {
	return d.name
}

// Template returns the message template of the error class.
func (d *ErrorDefinition) Template() string {
	return d.template
}

// Error makes the definition usable as an errors.Is target.
func (d *ErrorDefinition) Error() string {
	return fmt.Sprintf("%s: %s", core.FullName(d.domain, d.name), d.template)
}

// New creates an error instance, substituting the template parameters with
// the given payload values. Missing template parameters fail with an error
// naming them; extra payload entries are carried along unchanged.
func (d *ErrorDefinition) New(params core.Payload) (*Error, error) {
	var missing []string
	for _, param := range d.params {
		if _, ok := params[param]; !ok {
			missing = append(missing, fmt.Sprintf("%q", param))
		}
	}
	switch len(missing) {
	case 0:
	case 1:
		return nil, fmt.Errorf("%s missing 1 required parameter: %s",
			core.FullName(d.domain, d.name), missing[0])
	default:
		return nil, fmt.Errorf("%s missing %d required parameters: %s and %s",
			core.FullName(d.domain, d.name), len(missing),
			strings.Join(missing[:len(missing)-1], ", "), missing[len(missing)-1])
	}

	normalized, err := core.NewPayload(params)
	if err != nil {
		return nil, err
	}

	message := d.template
	for _, param := range d.params {
		message = strings.ReplaceAll(message,
			"{"+param+"}", fmt.Sprintf("%v", normalized[param]))
	}
	return &Error{definition: d, message: message, payload: normalized}, nil
}

// MustNew is New panicking on error, for raising errors whose parameters are
// known to be complete.
func (d *ErrorDefinition) MustNew(params core.Payload) *Error {
	e, err := d.New(params)
	if err != nil {
		panic(err)
	}
	return e
}

// NewWithMessage creates an error instance with a literal message, bypassing
// the template. The payload of such an instance is empty.
func (d *ErrorDefinition) NewWithMessage(message string) *Error {
	return &Error{definition: d, message: message, payload: core.Payload{}}
}

// Error is an instance of a registered domain error class.
type Error struct {
	definition *ErrorDefinition
	message    string
	payload    core.Payload
}

// Error returns the rendered message.
func (e *Error) Error() string {
	return e.message
}

// Definition returns the error class this instance belongs to.
func (e *Error) Definition() *ErrorDefinition {
	return e.definition
}

// Domain returns the domain of the error class.
func (e *Error) Domain() core.DomainName {
	return e.definition.domain
}

// Payload returns the parameters the instance was created with.
func (e *Error) Payload() core.Payload {
	return e.payload
}

// Is matches the instance against its definition, making
// errors.Is(err, definition) work.
func (e *Error) Is(target error) bool {
	def, ok := target.(*ErrorDefinition)
	return ok && def == e.definition
}

func templateParams(template string) ([]string, error) {
	var params []string
	seen := map[string]struct{}{}
	for _, match := range templateParamRegexp.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if !identifierRegexp.MatchString(name) {
			return nil, errs.NewValueIsInvalidErrorWithCause("template",
				fmt.Errorf("invalid template parameter name %q", name))
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		params = append(params, name)
	}
	return params, nil
}
