package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/dependencies/mocks"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/parser"
	"github.com/mcoot/dotareg/internal/services/validator"
	"github.com/mcoot/dotareg/internal/storage"
	"github.com/mcoot/dotareg/internal/storage/memory"
	redisstorage "github.com/mcoot/dotareg/internal/storage/redis"
	"github.com/mcoot/dotareg/internal/testutil"
)

// ServiceSuite runs against every storage backend; newStorage returns an
// empty store for each test.
type ServiceSuite struct {
	suite.Suite
	newStorage func(t *testing.T) storage.Storage

	storage storage.Storage
	clock   *mocks.MockClock
	ids     *mocks.MockIDGenerator
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, &ServiceSuite{newStorage: func(*testing.T) storage.Storage {
		return memory.New()
	}})
}

func TestServiceSuiteRedis(t *testing.T) {
	suite.Run(t, &ServiceSuite{newStorage: func(t *testing.T) storage.Storage {
		mini := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return redisstorage.NewWithClient(client, redisstorage.DefaultConfig())
	}})
}

func (s *ServiceSuite) SetupTest() {
	s.storage = s.newStorage(s.T())
	s.clock = mocks.NewMockClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDGenerator()
	s.service = New(s.storage, s.clock, s.ids, testutil.NopLogger(), metrics.New())
	s.ctx = context.Background()
}

func (s *ServiceSuite) players(list model.PlayerList) []*model.Player {
	players, err := s.storage.ListPlayers(s.ctx, list, model.PlayerFilter{})
	s.Require().NoError(err)
	return players
}

const twoPlayersCSV = "Alice,1234567,5000\nBob,7654321,6000"

func (s *ServiceSuite) TestImportCSVIntoEmptyStore() {
	res, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Added: 2}, *res)
	players := s.players(model.ListMasterlist)
	s.Require().Len(players, 2)
	s.Equal("Alice", players[0].Name)
	s.Equal(5000, players[0].MMR)
	s.Equal("Bob", players[1].Name)
	s.Empty(s.players(model.ListRegistrations))
}

func (s *ServiceSuite) TestReimportWithSkipDuplicatesSkipsEverything() {
	first, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{SkipDuplicates: true})
	s.Require().NoError(err)

	second, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{SkipDuplicates: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Skipped: first.Added}, *second)
	s.Len(s.players(model.ListMasterlist), 2)
}

func (s *ServiceSuite) TestReimportWithUpdateExisting() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)

	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"alice,1234567,5500,now plays support\nCarl,1111111,300", parser.FormatCSV, Options{UpdateExisting: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Added: 1, Updated: 1}, *res)
	players := s.players(model.ListMasterlist)
	s.Require().Len(players, 3)
	s.Equal("alice", players[0].Name)
	s.Equal(5500, players[0].MMR)
	s.Equal("now plays support", players[0].Notes)
	s.True(players[0].UpdatedAt.After(players[0].CreatedAt))
}

func (s *ServiceSuite) TestSkipDuplicatesOverridesUpdateExisting() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})
	s.Require().NoError(err)

	res, err := s.service.Import(s.ctx, model.ListMasterlist, "Alice,1234567,9999", parser.FormatCSV,
		Options{SkipDuplicates: true, UpdateExisting: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Skipped: 1}, *res)
	s.Equal(5000, s.players(model.ListMasterlist)[0].MMR)
}

func (s *ServiceSuite) TestDuplicateByNameOrID() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})
	s.Require().NoError(err)

	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"ALICE,9999999,100\nSomeone Else,7654321,100", parser.FormatCSV, Options{})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Skipped: 2}, *res)
}

func (s *ServiceSuite) TestAmbiguousDuplicateIsSkipped() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})
	s.Require().NoError(err)

	// name matches Alice, id matches Bob
	res, err := s.service.Import(s.ctx, model.ListMasterlist, "Alice,7654321,100", parser.FormatCSV, Options{UpdateExisting: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Skipped: 1}, *res)
	players := s.players(model.ListMasterlist)
	s.Equal("1234567", players[0].Dota2ID)
	s.Equal("Bob", players[1].Name)
}

func (s *ServiceSuite) TestDuplicatesWithinOneBatch() {
	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"Alice,1234567,5000\nalice,2222222,100\nAlicia,1234567,100", parser.FormatCSV, Options{})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Added: 1, Skipped: 2}, *res)
}

func (s *ServiceSuite) TestUpdateWithinOneBatchSeesEarlierRows() {
	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"Alice,1234567,5000\nAlice,1234567,6000", parser.FormatCSV, Options{UpdateExisting: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Added: 1, Updated: 1}, *res)
	s.Equal(6000, s.players(model.ListMasterlist)[0].MMR)
}

func (s *ServiceSuite) TestUpdateRenameFreesOldIdentityWithinBatch() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, "Alice,1111111,5000", parser.FormatCSV, Options{})
	s.Require().NoError(err)

	// the first row renames Alice to Bob, so the second may take the name
	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"Bob,1111111,5000\nAlice,2222222,4000", parser.FormatCSV, Options{UpdateExisting: true})
	s.Require().NoError(err)

	s.Equal(model.ImportResult{Added: 1, Updated: 1}, *res)
	players := s.players(model.ListMasterlist)
	s.Require().Len(players, 2)
	s.Equal("Bob", players[0].Name)
	s.Equal("Alice", players[1].Name)
	s.Equal("2222222", players[1].Dota2ID)
}

func (s *ServiceSuite) TestRepeatedUpdateInOneBatchLeavesNoStaleName() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, "Alice,1111111,5000", parser.FormatCSV, Options{})
	s.Require().NoError(err)

	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"Alicia,1111111,5000\nAlicia2,1111111,5000", parser.FormatCSV, Options{UpdateExisting: true})
	s.Require().NoError(err)
	s.Equal(model.ImportResult{Updated: 2}, *res)

	res, err = s.service.Import(s.ctx, model.ListMasterlist, "Alicia,3333333,3000", parser.FormatCSV, Options{})
	s.Require().NoError(err)
	s.Equal(model.ImportResult{Added: 1}, *res)

	found, err := s.storage.FindPlayersByIdentity(s.ctx, model.ListMasterlist, "Alicia", "")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("3333333", found[0].Dota2ID)
}

func (s *ServiceSuite) TestOneInvalidRowRejectsWholeBatch() {
	batch := testutil.NewPlayerGenerator(42).Batch(10)
	batch[6].Dota2ID = "12ab"

	res, err := s.service.Import(s.ctx, model.ListMasterlist, testutil.CSV(batch), parser.FormatCSV, Options{})
	s.Require().NoError(err)

	s.Zero(res.Added)
	s.Require().Len(res.Errors, 1)
	s.Equal(7, res.Errors[0].Line)
	s.Equal(validator.RuleDota2ID, res.Errors[0].Rule)
	s.Empty(s.players(model.ListMasterlist))
}

func (s *ServiceSuite) TestJSONImportReportsDota2IDRule() {
	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		`[{"name":"A","dota2id":"123","mmr":100}]`, parser.FormatJSON, Options{})
	s.Require().NoError(err)

	s.Equal(0, res.Added)
	s.Require().Len(res.Errors, 1)
	s.Equal(1, res.Errors[0].Line)
	s.Contains(res.Errors[0].Message, "dota2id")
	s.Contains(res.Errors[0].Message, `"123"`)
	s.Empty(s.players(model.ListMasterlist))
}

func (s *ServiceSuite) TestFormatAndValidationErrorsAreCollectedInOrder() {
	res, err := s.service.Import(s.ctx, model.ListMasterlist,
		"Alice,1234567,lots\nBob,7654321\nCarl,1111111,30000\nDan,2222222,10", parser.FormatCSV, Options{})
	s.Require().NoError(err)

	s.Require().Len(res.Errors, 3)
	s.Equal([]int{1, 2, 3}, []int{res.Errors[0].Line, res.Errors[1].Line, res.Errors[2].Line})
	s.Equal(validator.RuleMMR, res.Errors[0].Rule)
	s.Equal(RuleFormat, res.Errors[1].Rule)
	s.Empty(s.players(model.ListMasterlist))
}

func (s *ServiceSuite) TestMalformedJSONAbortsBatch() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, `{"name":"Alice"}`, parser.FormatJSON, Options{})
	s.ErrorIs(err, parser.ErrInvalidJSON)
}

func (s *ServiceSuite) TestEmptyInputAndNoRowsAreDistinct() {
	_, err := s.service.Import(s.ctx, model.ListMasterlist, "  \n ", parser.FormatCSV, Options{})
	s.ErrorIs(err, parser.ErrEmptyInput)

	_, err = s.service.Import(s.ctx, model.ListMasterlist, "name,dota2id,mmr", parser.FormatCSV, Options{})
	s.ErrorIs(err, ErrNoRows)

	_, err = s.service.Import(s.ctx, model.ListMasterlist, "[]", parser.FormatJSON, Options{})
	s.ErrorIs(err, ErrNoRows)

	_, err = s.service.ImportRecords(s.ctx, model.ListMasterlist, nil, Options{})
	s.ErrorIs(err, parser.ErrEmptyInput)
}

func (s *ServiceSuite) TestUnknownList() {
	_, err := s.service.Import(s.ctx, "bench", twoPlayersCSV, parser.FormatCSV, Options{})
	s.ErrorIs(err, model.ErrUnknownList)
}

func (s *ServiceSuite) TestRegistrationSessionIsStamped() {
	res, err := s.service.Import(s.ctx, model.ListRegistrations, twoPlayersCSV, parser.FormatCSV,
		Options{RegistrationSessionID: "rs_1"})
	s.Require().NoError(err)
	s.Equal(2, res.Added)

	count, err := s.storage.CountPlayersInSession(s.ctx, "rs_1")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *ServiceSuite) TestImportRecords() {
	name, id, mmr := parser.Scalar("Alice"), parser.Scalar("1234567"), parser.Scalar("5000")
	res, err := s.service.ImportRecords(s.ctx, model.ListMasterlist,
		[]parser.Record{{Name: &name, Dota2ID: &id, PeakMMR: &mmr}}, Options{})
	s.Require().NoError(err)

	s.Equal(1, res.Added)
	player := s.players(model.ListMasterlist)[0]
	s.Equal(model.PlayerID("p_1"), player.ID)
	s.Equal(5000, player.MMR)
}

func (s *ServiceSuite) TestImportFilePicksParserFromExtension() {
	res, err := s.service.ImportFile(s.ctx, model.ListMasterlist, "players.tsv",
		[]byte("Alice\t1234567\t5000\n"), Options{})
	s.Require().NoError(err)
	s.Equal(1, res.Added)

	_, err = s.service.ImportFile(s.ctx, model.ListMasterlist, "players.doc", []byte("x"), Options{})
	s.ErrorIs(err, parser.ErrUnknownFormat)
}

func (s *ServiceSuite) TestStorageFailureRollsBackBatch() {
	failing := &failingStorage{Storage: s.storage, failOnSave: 2, saves: new(int)}
	svc := New(failing, s.clock, s.ids, testutil.NopLogger(), nil)

	res, err := svc.Import(s.ctx, model.ListMasterlist, twoPlayersCSV, parser.FormatCSV, Options{})

	s.ErrorIs(err, errStorageDown)
	s.Nil(res)
	s.Empty(s.players(model.ListMasterlist))
}

var errStorageDown = errors.New("storage down")

// failingStorage fails the nth SavePlayer call, including calls made inside transactions
type failingStorage struct {
	storage.Storage
	failOnSave int
	saves      *int
}

func (f *failingStorage) SavePlayer(ctx context.Context, p *model.Player) error {
	*f.saves++
	if *f.saves == f.failOnSave {
		return errStorageDown
	}
	return f.Storage.SavePlayer(ctx, p)
}

func (f *failingStorage) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	return f.Storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		return fn(ctx, &failingStorage{Storage: tx, failOnSave: f.failOnSave, saves: f.saves})
	})
}
