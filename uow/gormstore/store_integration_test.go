package gormstore_test

import (
	"context"
	"testing"

	"dddkit/uow"
	"dddkit/uow/gormstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NoteRecord is the persistence model used to exercise the transactional
// scope behavior against a real database.
type NoteRecord struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Body string    `gorm:"type:text;not null"`
}

func (NoteRecord) TableName() string { return "notes" }

// NoteRepository is a minimal repository bound to one scope's transaction.
type NoteRepository struct {
	*gormstore.Tx
}

func (r *NoteRepository) Add(ctx context.Context, note NoteRecord) error {
	return r.DB(ctx).Create(&note).Error
}

func (r *NoteRepository) Get(ctx context.Context, id uuid.UUID) (NoteRecord, error) {
	var note NoteRecord
	err := r.DB(ctx).First(&note, "id = ?", id).Error
	return note, err
}

// GormStoreIntegrationTestSuite verifies the transaction-per-scope behavior
// of the gormstore factory against a real PostgreSQL database.
type GormStoreIntegrationTestSuite struct {
	suite.Suite
	container *pgcontainer.PostgresContainer
	db        *gorm.DB
	builder   *uow.Builder[*NoteRepository]
}

// SetupSuite starts a PostgreSQL container, connects GORM to it and wires a
// unit of work builder over the note repository.
func (suite *GormStoreIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	err = db.AutoMigrate(&NoteRecord{})
	suite.Require().NoError(err)

	factory, err := gormstore.NewFactory(db, func(tx *gormstore.Tx) *NoteRepository {
		return &NoteRepository{Tx: tx}
	})
	suite.Require().NoError(err)

	suite.builder, err = uow.NewBuilder[*NoteRepository](factory, uow.NewKeyedMutexLocker())
	suite.Require().NoError(err)
}

// SetupTest truncates the notes table so tests do not interfere.
func (suite *GormStoreIntegrationTestSuite) SetupTest() {
	err := suite.db.Exec("TRUNCATE TABLE notes").Error
	suite.Require().NoError(err)
}

// TearDownSuite terminates the PostgreSQL container.
func (suite *GormStoreIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		err := suite.container.Terminate(context.Background())
		suite.Require().NoError(err)
	}
}

// TestApply_PersistsChanges verifies an applied scope commits its
// transaction and the changes are visible to later scopes.
func (suite *GormStoreIntegrationTestSuite) TestApply_PersistsChanges() {
	ctx := context.Background()
	note := NoteRecord{ID: uuid.New(), Body: "committed note"}

	scope, err := suite.builder.Open(ctx, note.ID.String())
	suite.Require().NoError(err)

	err = scope.Repository().Add(ctx, note)
	suite.Require().NoError(err)

	err = scope.Apply(ctx)
	suite.Require().NoError(err)
	err = scope.Close(ctx)
	suite.Require().NoError(err)

	// A fresh scope must see the committed row.
	verify, err := suite.builder.Open(ctx)
	suite.Require().NoError(err)
	defer verify.Close(ctx)

	stored, err := verify.Repository().Get(ctx, note.ID)
	suite.Require().NoError(err)
	suite.Equal("committed note", stored.Body)
}

// TestClose_WithoutApplyRollsBack verifies closing an unapplied scope
// discards its changes.
func (suite *GormStoreIntegrationTestSuite) TestClose_WithoutApplyRollsBack() {
	ctx := context.Background()
	note := NoteRecord{ID: uuid.New(), Body: "discarded note"}

	scope, err := suite.builder.Open(ctx, note.ID.String())
	suite.Require().NoError(err)

	err = scope.Repository().Add(ctx, note)
	suite.Require().NoError(err)

	// The row is visible inside the transaction.
	inside, err := scope.Repository().Get(ctx, note.ID)
	suite.Require().NoError(err)
	suite.Equal(note.ID, inside.ID)

	err = scope.Close(ctx)
	suite.Require().NoError(err)

	verify, err := suite.builder.Open(ctx)
	suite.Require().NoError(err)
	defer verify.Close(ctx)

	_, err = verify.Repository().Get(ctx, note.ID)
	suite.Require().Error(err, "row must not survive a rolled back scope")
}

// TestScopes_AreIsolated verifies two open scopes do not see each other's
// uncommitted changes.
func (suite *GormStoreIntegrationTestSuite) TestScopes_AreIsolated() {
	ctx := context.Background()
	first := NoteRecord{ID: uuid.New(), Body: "first"}
	second := NoteRecord{ID: uuid.New(), Body: "second"}

	scope1, err := suite.builder.Open(ctx, first.ID.String())
	suite.Require().NoError(err)
	scope2, err := suite.builder.Open(ctx, second.ID.String())
	suite.Require().NoError(err)

	err = scope1.Repository().Add(ctx, first)
	suite.Require().NoError(err)
	err = scope2.Repository().Add(ctx, second)
	suite.Require().NoError(err)

	_, err = scope1.Repository().Get(ctx, second.ID)
	suite.Require().Error(err, "scope1 must not see scope2's uncommitted row")
	_, err = scope2.Repository().Get(ctx, first.ID)
	suite.Require().Error(err, "scope2 must not see scope1's uncommitted row")

	err = scope1.Apply(ctx)
	suite.Require().NoError(err)
	suite.Require().NoError(scope1.Close(ctx))
	suite.Require().NoError(scope2.Close(ctx))

	verify, err := suite.builder.Open(ctx)
	suite.Require().NoError(err)
	defer verify.Close(ctx)

	_, err = verify.Repository().Get(ctx, first.ID)
	suite.Require().NoError(err, "committed row must persist")
	_, err = verify.Repository().Get(ctx, second.ID)
	suite.Require().Error(err, "rolled back row must not persist")
}

// TestCommit_TwiceFails verifies a finished transaction rejects a second
// commit.
func (suite *GormStoreIntegrationTestSuite) TestCommit_TwiceFails() {
	ctx := context.Background()

	factory, err := gormstore.NewFactory(suite.db, func(tx *gormstore.Tx) *NoteRepository {
		return &NoteRepository{Tx: tx}
	})
	suite.Require().NoError(err)

	repo, err := factory.Build(ctx)
	suite.Require().NoError(err)

	err = repo.Commit(ctx)
	suite.Require().NoError(err)

	err = repo.Commit(ctx)
	suite.Require().Error(err)
}

func TestGormStoreIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(GormStoreIntegrationTestSuite))
}
