package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/core/kinds"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := New(db, kinds.DefaultCatalog(), quietLogger())
	require.NoError(t, st.EnsureSchema(context.Background()))
	return st
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// =============================================================================
// Embedded Database Tests
// =============================================================================

func TestEnsureSchema_Idempotent(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.EnsureSchema(context.Background()))
}

func TestStore_RoundTripsTypedValues(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	checkIn := time.Date(2024, 3, 1, 18, 30, 0, 0, time.Local)
	require.NoError(t, st.Insert(ctx, core.KindMembers, []core.Record{{
		"id":              "m-1",
		"first_name":      "Ana",
		"last_name":       "Roy",
		"email":           "ana@example.com",
		"membership_type": core.KnownMembership(core.PlanMonthly),
		"start_date":      day(2024, 1, 15),
		"status":          "active",
	}}))
	require.NoError(t, st.Insert(ctx, core.KindPayments, []core.Record{{
		"id":           "p-1",
		"member_id":    "m-1",
		"amount":       decimal.RequireFromString("49.99"),
		"payment_date": day(2024, 2, 29),
		"status":       "paid",
	}}))
	require.NoError(t, st.Insert(ctx, core.KindAttendance, []core.Record{{
		"id":            "a-1",
		"member_id":     "m-1",
		"check_in_time": checkIn,
		"type":          "regular",
	}}))
	require.NoError(t, st.Insert(ctx, core.KindClasses, []core.Record{{
		"id":         "c-1",
		"name":       "Spin",
		"instructor": "Lee",
		"capacity":   20,
		"day":        "monday",
		"start_time": "07:00",
		"end_time":   "08:00",
		"is_active":  true,
	}}))

	members, err := st.Select(ctx, core.KindMembers, core.Filter{})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, core.KnownMembership(core.PlanMonthly), members[0]["membership_type"])
	assert.True(t, day(2024, 1, 15).Equal(members[0]["start_date"].(time.Time)))
	assert.NotContains(t, members[0], "phone", "NULL columns are left out")

	payments, err := st.Select(ctx, core.KindPayments, core.Filter{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, decimal.RequireFromString("49.99").Equal(payments[0]["amount"].(decimal.Decimal)))
	assert.True(t, day(2024, 2, 29).Equal(payments[0]["payment_date"].(time.Time)))

	attendance, err := st.Select(ctx, core.KindAttendance, core.Filter{})
	require.NoError(t, err)
	require.Len(t, attendance, 1)
	assert.True(t, checkIn.Equal(attendance[0]["check_in_time"].(time.Time)))

	classes, err := st.Select(ctx, core.KindClasses, core.Filter{})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, 20, classes[0]["capacity"])
	assert.Equal(t, true, classes[0]["is_active"])
	assert.Equal(t, "07:00", classes[0]["start_time"])
}

func TestStore_InsertDuplicateIDFailsWholeCall(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := func(id, email string) core.Record {
		return core.Record{"id": id, "first_name": "A", "last_name": "B", "email": email,
			"membership_type": core.KnownMembership(core.PlanTrial)}
	}
	require.NoError(t, st.Insert(ctx, core.KindMembers, []core.Record{rec("m-1", "a@example.com")}))

	err := st.Insert(ctx, core.KindMembers, []core.Record{rec("m-2", "b@example.com"), rec("m-1", "c@example.com")})
	require.Error(t, err)
	assert.Equal(t, "DB002", core.MapError(err).Code)

	got, err := st.Select(ctx, core.KindMembers, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1, "a failed call writes nothing")
}

func TestStore_UpsertKeepsStoredID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, core.KindMembers, []core.Record{{
		"id": "m-1", "first_name": "Ana", "last_name": "Roy", "email": "ana@example.com",
		"membership_type": core.KnownMembership(core.PlanMonthly),
	}}, "email"))
	require.NoError(t, st.Upsert(ctx, core.KindMembers, []core.Record{{
		"id": "m-other", "first_name": "Anna", "last_name": "Roy", "email": "ana@example.com",
		"membership_type": core.CustomMembership("Corporate"),
	}}, "email"))

	got, err := st.Select(ctx, core.KindMembers, core.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m-1", got[0]["id"])
	assert.Equal(t, "Anna", got[0]["first_name"])
	assert.Equal(t, core.CustomMembership("Corporate"), got[0]["membership_type"])
}

func TestStore_SelectDateWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var recs []core.Record
	for i, d := range []time.Time{day(2024, 1, 1), day(2024, 2, 29), day(2024, 3, 1)} {
		recs = append(recs, core.Record{
			"id":           []string{"p-1", "p-2", "p-3"}[i],
			"member_id":    "m-1",
			"amount":       decimal.NewFromInt(10),
			"payment_date": d,
			"status":       "paid",
		})
	}
	require.NoError(t, st.Insert(ctx, core.KindPayments, recs))

	from, until := core.DateRange{Start: day(2024, 1, 1), End: day(2024, 2, 29)}.Window()
	got, err := st.Select(ctx, core.KindPayments, core.Filter{DateColumn: "payment_date", From: from, Until: until})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-1", got[0]["id"])
	assert.Equal(t, "p-2", got[1]["id"])

	_, err = st.Select(ctx, core.KindPayments, core.Filter{DateColumn: "nope"})
	assert.Error(t, err)
}

func TestStore_DeleteWithSentinelWipes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Insert(ctx, core.KindClasses, []core.Record{
		{"id": "c-1", "name": "Spin", "instructor": "Lee", "capacity": 20, "day": "monday", "start_time": "07:00", "end_time": "08:00"},
		{"id": "c-2", "name": "Yoga", "instructor": "Kim", "capacity": 10, "day": "friday", "start_time": "18:00", "end_time": "19:00"},
	}))

	require.NoError(t, st.Delete(ctx, core.KindClasses, core.Predicate{Column: "id", Op: core.OpEqual, Value: "c-1"}))
	got, err := st.Select(ctx, core.KindClasses, core.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, st.Delete(ctx, core.KindClasses, core.Predicate{Column: "id", Op: core.OpNotEqual, Value: core.SentinelID}))
	got, err = st.Select(ctx, core.KindClasses, core.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_UnknownKind(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Select(context.Background(), "widgets", core.Filter{})
	assert.Equal(t, "KND001", core.MapError(err).Code)
}

func TestStore_ServiceImportAndExport(t *testing.T) {
	st := newTestStore(t)
	svc := core.NewService(core.ServiceConfig{
		Store:   st,
		Catalog: kinds.DefaultCatalog(),
		Logger:  quietLogger(),
	})
	ctx := context.Background()

	csv := "FirstName,LastName,Email,MembershipType\nAna,Roy,ANA@example.com,Monthly\nBo,Li,bo@example.com,VIP\n"
	for range 2 {
		res := svc.Import(ctx, core.ImportRequest{Data: []byte(csv), FileName: "members.csv", Kind: core.KindMembers, Mode: core.ModeMerge})
		require.True(t, res.Success, res.ErrorStrings())
		assert.Equal(t, 2, res.ImportedRecords)
	}

	got, err := st.Select(ctx, core.KindMembers, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2, "merge by email is idempotent")

	blobs, err := svc.Export(ctx, core.ExportRequest{Format: "csv", Target: "members"})
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Contains(t, string(blobs[0].Data), "ana@example.com")
}

// =============================================================================
// Driver Failure Tests
// =============================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, kinds.DefaultCatalog(), quietLogger()), mock
}

func TestStore_InsertFailureRollsBack(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "classes"`))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "classes"`)).
		WithArgs("c-1", "Spin", "Lee", int64(20), "monday", "07:00", "08:00",
			nil, nil, nil, nil, nil, int64(1)).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	err := st.Insert(context.Background(), core.KindClasses, []core.Record{{
		"id": "c-1", "name": "Spin", "instructor": "Lee", "capacity": 20, "day": "monday",
		"start_time": "07:00", "end_time": "08:00", "is_active": true,
	}})
	require.Error(t, err)
	assert.Equal(t, "DB006", core.MapError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpsertCommits(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE SET "member_id" = excluded."member_id"`))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "payments"`)).
		WithArgs("p-1", "m-1", "12.5", "2024-02-29", "paid", nil, "cash", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := st.Upsert(context.Background(), core.KindPayments, []core.Record{{
		"id": "p-1", "member_id": "m-1", "amount": decimal.RequireFromString("12.50"),
		"payment_date": day(2024, 2, 29), "status": "paid", "payment_method": "cash",
	}}, "id")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SelectQueryFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "members" ORDER BY "id"`)).
		WillReturnError(errors.New("connection refused"))

	_, err := st.Select(context.Background(), core.KindMembers, core.Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query members")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SelectBadStoredValue(t *testing.T) {
	st, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "member_id", "amount", "payment_date", "status", "due_date", "payment_method", "notes"}).
		AddRow("p-1", "m-1", "not-a-number", "2024-01-01", "paid", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "payments"`)).WillReturnRows(rows)

	_, err := st.Select(context.Background(), core.KindPayments, core.Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments.amount")
}

func TestStore_DeleteArgs(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "members" WHERE "id" <> ?`)).
		WithArgs(core.SentinelID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := st.Delete(context.Background(), core.KindMembers, core.Predicate{Column: "id", Op: core.OpNotEqual, Value: core.SentinelID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
