package service

import (
	"context"
	"testing"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createReq(unit uuid.UUID) dto.CreateRequestRequest {
	return dto.CreateRequestRequest{
		Title:        "  Mua máy đo SpO2  ",
		TargetUnitID: unit.String(),
		Items: []dto.RequestItem{
			{Name: "Máy đo SpO2", QuantityUnit: "3 cái", PurposeOrDamage: "Thay thế"},
			{Name: "   ", QuantityUnit: "1 hộp"},
		},
	}
}

func TestCreateRequest_Defaults(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()

	resp, err := svc.Create(context.Background(), f.cardio, createReq(f.unitA.ID))
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, resp.Status)
	assert.Equal(t, model.RequestPurchase, resp.Type)
	assert.Equal(t, "Mua máy đo SpO2", resp.Title)
	assert.Equal(t, deptCardio, resp.Department)
	assert.Equal(t, "Bác sĩ Tim", resp.RequesterName)
	assert.Equal(t, formatDate(today()), resp.Date)
	require.Len(t, resp.Items, 1, "unnamed lines are dropped")
	assert.NotEmpty(t, resp.Items[0].ID)
	assert.Nil(t, resp.DossierID)
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()

	blank := createReq(f.unitA.ID)
	blank.Title = "   "
	_, err := svc.Create(ctx, f.cardio, blank)
	assert.ErrorIs(t, err, ErrValidation)

	incomplete := createReq(f.unitA.ID)
	incomplete.Items = []dto.RequestItem{{Name: "Găng tay"}}
	_, err = svc.Create(ctx, f.cardio, incomplete)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, f.cardio, createReq(uuid.New()))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, f.procA, createReq(f.unitA.ID))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptRequest_OnlyTargetUnitAndOnlyOnce(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPending, 0)

	_, err := svc.Accept(ctx, f.procB, r.ID, "không phải đơn vị")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Accept(ctx, f.admin, r.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := svc.Accept(ctx, f.procA, r.ID, "Đã nhận")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReceived, resp.Status)

	_, err = svc.Reject(ctx, f.procA, r.ID, "đổi ý")
	assert.ErrorIs(t, err, ErrValidation)

	stored := f.request(t, r.ID)
	assert.Equal(t, model.StatusReceived, stored.Status)
	require.NotNil(t, stored.ProcurementNote)
	assert.Equal(t, "Đã nhận", *stored.ProcurementNote, "a guarded transition never overwrites the note")
}

func TestRejectRequest_IsTerminal(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPending, 0)

	resp, err := svc.Reject(ctx, f.procA, r.ID, "Không đủ ngân sách")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, resp.Status)

	_, err = svc.Accept(ctx, f.procA, r.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SetAmount(ctx, f.procA, r.ID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()

	mine := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPending, 0)
	assert.ErrorIs(t, svc.Delete(ctx, f.icu, mine.ID), ErrForbidden)
	assert.NoError(t, svc.Delete(ctx, f.cardio, mine.ID))
	_, err := svc.Get(ctx, f.cardio, mine.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	received := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)
	assert.ErrorIs(t, svc.Delete(ctx, f.admin, received.ID), ErrValidation)

	other := f.seedRequest(t, f.icu, f.unitA.ID, model.StatusPending, 0)
	assert.NoError(t, svc.Delete(ctx, f.admin, other.ID))
}

func TestListRequests_Visibility(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()

	cardioToA := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPending, 0)
	icuToB := f.seedRequest(t, f.icu, f.unitB.ID, model.StatusPending, 0)
	procBOwn := f.seedRequest(t, f.procB, f.unitA.ID, model.StatusPending, 0)

	ids := func(rs []dto.RequestResponse) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	all, err := svc.List(ctx, f.admin, dto.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	usage, err := svc.List(ctx, f.cardio, dto.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{cardioToA.ID.String()}, ids(usage))

	proc, err := svc.List(ctx, f.procB, dto.RequestFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{icuToB.ID.String(), procBOwn.ID.String()}, ids(proc))

	none, err := svc.List(ctx, f.accountant, dto.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Get(ctx, f.icu, cardioToA.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, f.guest, cardioToA.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, f.procA, cardioToA.ID)
	assert.NoError(t, err)
}

func TestCreateRequest_Roles(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()

	for _, actor := range []Actor{f.admin, f.cardio, f.accountant, f.director} {
		resp, err := svc.Create(ctx, actor, createReq(f.unitA.ID))
		require.NoError(t, err, actor.Role)
		assert.Equal(t, actor.Department, resp.Department)
	}
	for _, actor := range []Actor{f.procA, f.guest} {
		_, err := svc.Create(ctx, actor, createReq(f.unitA.ID))
		assert.ErrorIs(t, err, ErrForbidden, actor.Role)
	}
}

func TestReplaceRequests_CannotMoveStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)
	id := r.ID.String()

	promote := dto.BulkRequestEntry{ID: &id, Status: model.StatusPurchased}
	_, err := svc.ReplaceRequests(ctx, f.admin, []dto.BulkRequestEntry{promote})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, model.StatusReceived, f.request(t, r.ID).Status)

	smuggled := dto.BulkRequestEntry{CreateRequestRequest: createReq(f.unitA.ID), Status: model.StatusPurchased}
	_, err = svc.ReplaceRequests(ctx, f.admin, []dto.BulkRequestEntry{smuggled})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ReplaceRequests(ctx, f.cardio, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReplaceRequests_UpsertsEditableFields(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)
	id := r.ID.String()
	amount := decimal.NewFromInt(1_500_000)

	edit := dto.BulkRequestEntry{ID: &id, Status: model.StatusReceived, Amount: &amount}
	edit.Title = "Máy đo huyết áp điện tử"
	fresh := dto.BulkRequestEntry{CreateRequestRequest: createReq(f.unitB.ID)}

	resp, err := svc.ReplaceRequests(ctx, f.admin, []dto.BulkRequestEntry{edit, fresh})
	require.NoError(t, err)
	require.Len(t, resp, 2)

	stored := f.request(t, r.ID)
	assert.Equal(t, "Máy đo huyết áp điện tử", stored.Title)
	assert.True(t, stored.AmountOrZero().Equal(amount))
	assert.Equal(t, model.StatusReceived, stored.Status)
	assert.Equal(t, model.StatusPending, resp[1].Status)
}

func TestReplaceRequests_KeepsRejectedAmount(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusRejected, 0)
	id := r.ID.String()
	amount := decimal.NewFromInt(900_000)

	priced := dto.BulkRequestEntry{ID: &id, Amount: &amount}
	_, err := svc.ReplaceRequests(ctx, f.admin, []dto.BulkRequestEntry{priced})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, f.request(t, r.ID).Amount)

	retitled := dto.BulkRequestEntry{ID: &id}
	retitled.Title = "Máy đo huyết áp cơ"
	_, err = svc.ReplaceRequests(ctx, f.admin, []dto.BulkRequestEntry{retitled})
	require.NoError(t, err)
	assert.Equal(t, "Máy đo huyết áp cơ", f.request(t, r.ID).Title)
}

func TestSetAmount_Permissions(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	r := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)

	_, err := svc.SetAmount(ctx, f.procB, r.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.SetAmount(ctx, f.procA, r.ID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrValidation)

	resp, err := svc.SetAmount(ctx, f.procA, r.ID, decimal.NewFromInt(2_000_000))
	require.NoError(t, err)
	assert.Equal(t, "2000000", resp.Amount.String())
}

func TestRecordFeedback_OnlyAfterPurchase(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()
	yes := true

	pending := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)
	_, err := svc.RecordFeedback(ctx, f.cardio, pending.ID, dto.FeedbackRequest{Accepted: &yes})
	assert.ErrorIs(t, err, ErrValidation)

	bought := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPurchased, 0)
	_, err = svc.RecordFeedback(ctx, f.icu, bought.ID, dto.FeedbackRequest{Accepted: &yes})
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := svc.RecordFeedback(ctx, f.cardio, bought.ID, dto.FeedbackRequest{Accepted: &yes, Feedback: "Tốt"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUserAccepted, resp.Status)
	require.NotNil(t, resp.UserFeedback)
	assert.Equal(t, "Tốt", *resp.UserFeedback)
}

func TestListEligibleForDossier(t *testing.T) {
	f := newFixture(t)
	svc := f.requests()
	ctx := context.Background()

	eligible := f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusReceived, 0)
	f.seedRequest(t, f.cardio, f.unitA.ID, model.StatusPending, 0)
	f.seedRequest(t, f.cardio, f.unitB.ID, model.StatusReceived, 0)

	resp, err := svc.ListEligibleForDossier(ctx, f.procA)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, eligible.ID.String(), resp[0].ID)

	all, err := svc.ListEligibleForDossier(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListEligibleForDossier(ctx, f.cardio)
	assert.ErrorIs(t, err, ErrForbidden)
}
