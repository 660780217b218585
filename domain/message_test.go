package domain_test

import (
	"testing"
	"time"

	"dddkit/core"
	"dddkit/domain"
	"dddkit/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CreatePerson struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
}

type PersonCreated struct {
	Reference uuid.UUID `json:"reference"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
}

type RenamePerson struct {
	Reference uuid.UUID `json:"reference"`
	Name      string    `json:"name" validate:"required"`
}

func init() {
	domain.MustRegisterCommand[CreatePerson]("person")
	domain.MustRegisterEvent[PersonCreated]("person")
	domain.MustRegisterCommand[RenamePerson]("person")
}

func TestNewCommand(t *testing.T) {
	t.Run("creates_typed_command", func(t *testing.T) {
		// Act
		cmd, err := domain.NewCommand(CreatePerson{Name: "John", Surname: "Black"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, core.DomainName("person"), cmd.Domain())
		assert.Equal(t, core.MessageName("CreatePerson"), cmd.Name())
		assert.Equal(t, core.CommandMessageType, cmd.Type())
		assert.NotEqual(t, uuid.Nil, cmd.Reference())
		assert.Equal(t, time.UTC, cmd.OccurredAt().Location())
		assert.Equal(t, "John", cmd.Data().Name)
	})

	t.Run("payload_round_trips_to_json", func(t *testing.T) {
		// Arrange
		cmd, err := domain.NewCommand(CreatePerson{Name: "John", Surname: "Black"})
		require.NoError(t, err)

		// Act
		data, err := cmd.ToJSON()

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"John","surname":"Black"}`, string(data))
		assert.Equal(t, core.Payload{"name": "John", "surname": "Black"}, cmd.Payload())
	})

	t.Run("validates_payload_tags", func(t *testing.T) {
		// Act
		_, err := domain.NewCommand(CreatePerson{Name: "John"})

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("unregistered_type_fails", func(t *testing.T) {
		type UnknownCommand struct{ Value string }

		_, err := domain.NewCommand(UnknownCommand{Value: "x"})

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("event_type_is_not_a_command", func(t *testing.T) {
		_, err := domain.NewCommand(PersonCreated{Reference: uuid.New(), Name: "John"})

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestNewEvent(t *testing.T) {
	// Act
	event, err := domain.NewEvent(PersonCreated{Reference: uuid.New(), Name: "John", Surname: "Black"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, core.DomainName("person"), event.Domain())
	assert.Equal(t, core.MessageName("PersonCreated"), event.Name())
	assert.Equal(t, core.EventMessageType, event.Type())
}

func TestRegisterCommand(t *testing.T) {
	t.Run("repeated_registration_is_noop", func(t *testing.T) {
		require.NoError(t, domain.RegisterCommand[CreatePerson]("person"))
	})

	t.Run("same_type_under_other_domain_fails", func(t *testing.T) {
		err := domain.RegisterCommand[CreatePerson]("other-domain")

		require.Error(t, err)
		assert.ErrorContains(t, err, "already registered in collection with other name")
	})

	t.Run("other_type_under_occupied_name_fails", func(t *testing.T) {
		type CreatePerson struct {
			Nickname string `json:"nickname"`
		}

		err := domain.RegisterCommand[CreatePerson]("person")

		require.Error(t, err)
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("lowercase_type_name_fails", func(t *testing.T) {
		type badName struct{ Value string }

		err := domain.RegisterCommand[badName]("person")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestLoadCommand(t *testing.T) {
	t.Run("builds_typed_instance_from_payload", func(t *testing.T) {
		// Arrange
		reference := uuid.New()
		occurredAt := time.Date(2024, 2, 14, 11, 58, 5, 0, time.UTC)
		payload := core.Payload{"name": "John", "surname": "Black"}

		// Act
		msg, err := domain.LoadCommand("person", "CreatePerson", payload, reference, occurredAt)

		// Assert
		require.NoError(t, err)
		cmd, ok := msg.(*domain.Command[CreatePerson])
		require.True(t, ok)
		assert.Equal(t, reference, cmd.Reference())
		assert.Equal(t, occurredAt, cmd.OccurredAt())
		assert.Equal(t, "John", cmd.Data().Name)
	})

	t.Run("generates_reference_and_timestamp_when_absent", func(t *testing.T) {
		// Act
		msg, err := domain.LoadCommand("person", "CreatePerson",
			core.Payload{"name": "John", "surname": "Black"}, uuid.Nil, time.Time{})

		// Assert
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, msg.Reference())
		assert.False(t, msg.OccurredAt().IsZero())
	})

	t.Run("validates_loaded_payload", func(t *testing.T) {
		_, err := domain.LoadCommand("person", "CreatePerson",
			core.Payload{"name": "John"}, uuid.Nil, time.Time{})

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("unregistered_command_fails", func(t *testing.T) {
		_, err := domain.LoadCommand("person", "UnknownName", core.Payload{}, uuid.Nil, time.Time{})

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestLoadEvent(t *testing.T) {
	// Arrange
	reference := uuid.New()
	payload := core.Payload{"reference": uuid.New().String(), "name": "John", "surname": "Black"}

	// Act
	msg, err := domain.LoadEvent("person", "PersonCreated", payload, reference, time.Time{})

	// Assert
	require.NoError(t, err)
	event, ok := msg.(*domain.Event[PersonCreated])
	require.True(t, ok)
	assert.Equal(t, reference, event.Reference())
	assert.Equal(t, "John", event.Data().Name)
}

func TestCommandMeta(t *testing.T) {
	t.Run("returns_registered_meta", func(t *testing.T) {
		meta, err := domain.CommandMeta("person", "CreatePerson")

		require.NoError(t, err)
		assert.Equal(t, "person.CreatePerson", meta.FullName())
		assert.Equal(t, core.CommandMessageType, meta.Type)
	})

	t.Run("unknown_command_fails", func(t *testing.T) {
		_, err := domain.CommandMeta("person", "Unknown")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestRegisteredMessages(t *testing.T) {
	metas := domain.RegisteredMessages("person")

	fullNames := make([]string, 0, len(metas))
	for _, meta := range metas {
		fullNames = append(fullNames, meta.FullName())
	}
	assert.Contains(t, fullNames, "person.CreatePerson")
	assert.Contains(t, fullNames, "person.PersonCreated")
}
