package postgresadapter

import (
	"context"
	"regexp"
	"testing"
	"time"

	"emporium/contexts/trading/nft-marketplace/domain/entities"
	domainerrors "emporium/contexts/trading/nft-marketplace/domain/errors"
	"emporium/contexts/trading/nft-marketplace/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testCollection = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testSeller     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testBuyer      = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	testNow        = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(db, nil), mock
}

func stmt(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func testSale() (entities.Sale, entities.Listing) {
	key := entities.NewListingKey(testCollection, uint256.NewInt(0))
	listing := entities.Listing{
		Key:       key,
		Lister:    testSeller,
		Price:     *uint256.NewInt(1000),
		ListedAt:  testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
	sale := entities.Sale{
		SaleID:   "sale-1",
		Key:      key,
		Seller:   testSeller,
		Buyer:    testBuyer,
		Price:    *uint256.NewInt(1000),
		Fee:      *uint256.NewInt(20),
		Proceeds: *uint256.NewInt(980),
		PayoutID: "payout-1",
		SoldAt:   testNow,
	}
	return sale, listing
}

func testEvent(id string, eventType string) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:       id,
		EventType:     eventType,
		OccurredAt:    testNow,
		SchemaVersion: 1,
		PartitionKey:  "listing",
	}
}

func expectOutboxInsert(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(stmt(`INSERT INTO "market_outbox"`)).
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(int64(1)))
}

func TestRecordSaleWithOutboxCommitsSettlement(t *testing.T) {
	repo, mock := newMockRepository(t)
	sale, _ := testSale()

	mock.ExpectBegin()
	mock.ExpectExec(stmt(`DELETE FROM "market_listings"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt(`INSERT INTO "market_sales"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(stmt(`INSERT INTO "market_fee_ledger"`) + `.*` + stmt(`ON CONFLICT`)).
		WillReturnRows(sqlmock.NewRows([]string{"accrued"}).AddRow("20"))
	expectOutboxInsert(mock)
	mock.ExpectCommit()

	require.NoError(t, repo.RecordSaleWithOutbox(context.Background(), sale, testEvent("evt-sold", "marketplace.item_sold")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSaleWithOutboxRollsBackWithoutListing(t *testing.T) {
	repo, mock := newMockRepository(t)
	sale, _ := testSale()

	mock.ExpectBegin()
	mock.ExpectExec(stmt(`DELETE FROM "market_listings"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RecordSaleWithOutbox(context.Background(), sale, testEvent("evt-sold", "marketplace.item_sold"))
	require.ErrorIs(t, err, domainerrors.ErrNotListed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertSaleRestoresListingAndDebitsFee(t *testing.T) {
	repo, mock := newMockRepository(t)
	sale, listing := testSale()

	mock.ExpectBegin()
	mock.ExpectExec(stmt(`DELETE FROM "market_sales"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt(`UPDATE "market_fee_ledger"`) + `.*` + stmt(`accrued >=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt(`INSERT INTO "market_listings"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	expectOutboxInsert(mock)
	mock.ExpectCommit()

	err := repo.RevertSale(context.Background(), sale, listing, testEvent("evt-reverted", "marketplace.sale_reverted"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertSaleRefusesToOverdrawLedger(t *testing.T) {
	repo, mock := newMockRepository(t)
	sale, listing := testSale()

	// The fee was already withdrawn: the guarded debit matches no row and
	// the sale delete must not survive.
	mock.ExpectBegin()
	mock.ExpectExec(stmt(`DELETE FROM "market_sales"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stmt(`UPDATE "market_fee_ledger"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RevertSale(context.Background(), sale, listing, testEvent("evt-reverted", "marketplace.sale_reverted"))
	require.ErrorIs(t, err, domainerrors.ErrRepositoryInvariantBroke)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrainFeesWithOutboxZeroesLedger(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt(`FROM "market_fee_ledger"`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "accrued", "updated_at"}).AddRow(int64(1), "20", testNow))
	mock.ExpectExec(stmt(`UPDATE "market_fee_ledger"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	expectOutboxInsert(mock)
	mock.ExpectCommit()

	var eventAmount string
	drained, err := repo.DrainFeesWithOutbox(context.Background(), testNow, func(amount uint256.Int) (ports.EventEnvelope, error) {
		eventAmount = amount.Dec()
		return testEvent("evt-withdrawn", "marketplace.fees_withdrawn"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "20", drained.Dec())
	require.Equal(t, "20", eventAmount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDrainFeesWithOutboxEmptyLedger(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(stmt(`FROM "market_fee_ledger"`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "accrued", "updated_at"}).AddRow(int64(1), "0", testNow))
	mock.ExpectRollback()

	_, err := repo.DrainFeesWithOutbox(context.Background(), testNow, func(uint256.Int) (ports.EventEnvelope, error) {
		t.Fatal("no event expected for an empty ledger")
		return ports.EventEnvelope{}, nil
	})
	require.ErrorIs(t, err, domainerrors.ErrNothingToWithdraw)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreFees(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "credits ledger", affected: 1},
		{name: "missing ledger row", affected: 0, wantErr: domainerrors.ErrRepositoryInvariantBroke},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectBegin()
			mock.ExpectExec(stmt(`UPDATE "market_fee_ledger"`)).WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.wantErr == nil {
				expectOutboxInsert(mock)
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			err := repo.RestoreFees(context.Background(), *uint256.NewInt(20), testNow, testEvent("evt-restored", "marketplace.fees_restored"))
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
