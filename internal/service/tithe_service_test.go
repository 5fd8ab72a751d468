package service

import (
	"context"
	"testing"

	"purchaseboard/internal/model"
	"purchaseboard/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titheFixture struct {
	svc    TitheService
	tithes *fakeTitheRepo
	users  *fakeUserRepo
	audit  *fakeAuditRepo
}

func newTitheFixture() *titheFixture {
	f := &titheFixture{
		tithes: newFakeTitheRepo(newFakeClock()),
		users:  newFakeUserRepo(),
		audit:  newFakeAuditRepo(),
	}
	f.svc = NewTitheService(f.tithes, f.users, f.audit, fakeTxManager{})
	return f
}

func (f *titheFixture) seedFinanceStaff(t *testing.T, name string) model.User {
	t.Helper()
	u := model.User{
		DisplayName: name,
		Email:       name + "@example.com",
		Password:    "x",
		Role:        model.RoleFinance,
		Status:      model.UserStatusApproved,
	}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

func entryDTO(category string, amount int64) CreateDedicationEntryDTO {
	return CreateDedicationEntryDTO{Category: category, Amount: decimal.NewFromInt(amount)}
}

func TestCreateTaskAssignsFinanceStaff(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, model.TitheTaskInProgress, task.Status)
	assert.Equal(t, treasurer.ID.String(), task.TreasurerID)
	assert.Equal(t, "tess", task.TreasurerName)
	assert.Equal(t, staff.ID.String(), task.FinanceStaffUID)
	assert.Equal(t, "fiona", task.FinanceStaffName)
	assert.Equal(t, []string{model.ActionCreateTitheTask}, f.audit.actions())
}

func TestCreateTaskRejectsNonFinanceAssignee(t *testing.T) {
	f := newTitheFixture()
	treasurer := somePrincipal("tess")

	member := model.User{DisplayName: "mel", Email: "mel@example.com", Password: "x", Role: model.RoleMember, Status: model.UserStatusApproved}
	require.NoError(t, f.users.Create(context.Background(), &member))

	_, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: member.ID.String()})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: "not-a-uuid"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestSummaryGroupsByCategory(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)
	taskID := uuid.MustParse(task.ID)

	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("tithe", 100))
	require.NoError(t, err)
	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("mission", 40))
	require.NoError(t, err)
	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("tithe", 60))
	require.NoError(t, err)

	view, err := f.svc.GetTask(context.Background(), taskID)
	require.NoError(t, err)

	require.Len(t, view.Entries, 3)
	require.NotNil(t, view.Summary)
	assert.Equal(t, float64(200), view.Summary.TotalAmount)
	assert.Equal(t, float64(160), view.Summary.ByCategory["tithe"])
	assert.Equal(t, float64(40), view.Summary.ByCategory["mission"])
	assert.Equal(t, []string{"mission", "tithe"}, view.Summary.Categories)
}

func TestEntriesRequireTaskParticipant(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")
	outsider := somePrincipal("oli")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)
	taskID := uuid.MustParse(task.ID)

	_, err = f.svc.AddEntry(context.Background(), taskID, outsider, entryDTO("tithe", 10))
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// The assigned finance staff may write entries too.
	staffPrincipal := model.Principal{ID: staff.ID, DisplayName: staff.DisplayName, Role: staff.Role}
	entry, err := f.svc.AddEntry(context.Background(), taskID, staffPrincipal, entryDTO("tithe", 10))
	require.NoError(t, err)

	err = f.svc.DeleteEntry(context.Background(), taskID, uuid.MustParse(entry.ID), outsider)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestEntryValidation(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)
	taskID := uuid.MustParse(task.ID)

	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("  ", 10))
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("tithe", 0))
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestCompleteIsOneWay(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)
	taskID := uuid.MustParse(task.ID)

	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("tithe", 10))
	require.NoError(t, err)

	completed, err := f.svc.CompleteTask(context.Background(), taskID, treasurer)
	require.NoError(t, err)
	assert.Equal(t, model.TitheTaskCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// No further completion and no more edits once closed.
	_, err = f.svc.CompleteTask(context.Background(), taskID, treasurer)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = f.svc.AddEntry(context.Background(), taskID, treasurer, entryDTO("tithe", 5))
	assert.ErrorIs(t, err, repository.ErrConflict)

	view, err := f.svc.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	err = f.svc.DeleteEntry(context.Background(), taskID, uuid.MustParse(view.Entries[0].ID), treasurer)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCompleteRequiresParticipant(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")
	outsider := somePrincipal("oli")

	task, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)

	_, err = f.svc.CompleteTask(context.Background(), uuid.MustParse(task.ID), outsider)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestDeleteEntryWrongTask(t *testing.T) {
	f := newTitheFixture()
	staff := f.seedFinanceStaff(t, "fiona")
	treasurer := somePrincipal("tess")

	first, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)
	second, err := f.svc.CreateTask(context.Background(), treasurer, CreateTitheTaskDTO{FinanceStaffUID: staff.ID.String()})
	require.NoError(t, err)

	entry, err := f.svc.AddEntry(context.Background(), uuid.MustParse(first.ID), treasurer, entryDTO("tithe", 10))
	require.NoError(t, err)

	err = f.svc.DeleteEntry(context.Background(), uuid.MustParse(second.ID), uuid.MustParse(entry.ID), treasurer)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
