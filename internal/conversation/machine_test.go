package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	platforms []types.Platform
	orders    map[uint]*types.Order

	added    []types.Order
	patches  []types.OrderPatch
	addErr   error
	platErr  error
	nextID   uint
	newNames []string
}

func newFakeStore(platforms ...string) *fakeStore {
	s := &fakeStore{orders: map[uint]*types.Order{}}
	for i, name := range platforms {
		s.platforms = append(s.platforms, types.Platform{ID: uint(i + 1), Name: name})
	}
	return s
}

func (f *fakeStore) ListPlatforms(ctx context.Context) ([]types.Platform, error) {
	return f.platforms, nil
}

func (f *fakeStore) GetPlatform(ctx context.Context, platformID uint) (*types.Platform, error) {
	for _, p := range f.platforms {
		if p.ID == platformID {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AddPlatform(ctx context.Context, name string) (*types.Platform, error) {
	if f.platErr != nil {
		return nil, f.platErr
	}
	f.newNames = append(f.newNames, name)
	p := types.Platform{ID: uint(len(f.platforms) + 1), Name: name}
	f.platforms = append(f.platforms, p)
	return &p, nil
}

func (f *fakeStore) AddOrder(ctx context.Context, order types.Order) (*types.Order, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.nextID++
	order.ID = f.nextID
	f.added = append(f.added, order)
	f.orders[order.ID] = &order
	return &order, nil
}

func (f *fakeStore) UpdateOrder(ctx context.Context, orderID uint, patch types.OrderPatch) (*types.Order, error) {
	f.patches = append(f.patches, patch)
	order, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return order, nil
}

func step(t *testing.T, m *conversation.Machine, s conversation.Session, in conversation.Input) (conversation.Session, conversation.Reply) {
	t.Helper()
	next, reply, err := m.Step(context.Background(), s, in)
	require.NoError(t, err)
	return next, reply
}

func text(s string) conversation.Input {
	return conversation.Input{Kind: conversation.InputText, Text: s}
}

func TestStartCreationRefusedWithoutPlatforms(t *testing.T) {
	m := conversation.NewMachine(newFakeStore())

	s, _, err := m.StartCreation(context.Background())

	assert.ErrorIs(t, err, conversation.ErrNoPlatforms)
	assert.True(t, s.IsIdle())
}

func TestWizardCollectsAndSavesOrder(t *testing.T) {
	store := newFakeStore("Amazon")
	m := conversation.NewMachine(store)

	s, reply, err := m.StartCreation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, conversation.StateCollectingName, s.State)
	assert.Equal(t, conversation.ScreenAskName, reply.Screen)

	s, reply = step(t, m, s, text("Book"))
	assert.Equal(t, conversation.StateCollectingPlatform, s.State)
	assert.Equal(t, conversation.ScreenAskPlatform, reply.Screen)
	assert.Len(t, reply.Platforms, 1)

	s, reply = step(t, m, s, conversation.Input{Kind: conversation.InputPlatform, PlatformID: 1})
	assert.Equal(t, conversation.StateCollectingLink, s.State)
	assert.Equal(t, "Amazon", s.Draft.PlatformName)

	s, _ = step(t, m, s, conversation.Input{Kind: conversation.InputSkip})
	assert.Equal(t, conversation.StateCollectingPaymentStatus, s.State)
	assert.Nil(t, s.Draft.Link)

	s, _ = step(t, m, s, text("Paid"))
	assert.Equal(t, conversation.StateCollectingComment, s.State)

	s, reply = step(t, m, s, text("gift"))
	assert.Equal(t, conversation.StateConfirming, s.State)
	assert.Equal(t, conversation.ScreenReview, reply.Screen)
	assert.Empty(t, store.added, "nothing is persisted before save")

	s, reply = step(t, m, s, conversation.Input{Kind: conversation.InputSave})
	assert.True(t, s.IsIdle())
	assert.Equal(t, conversation.ScreenOrderSaved, reply.Screen)

	require.Len(t, store.added, 1)
	saved := store.added[0]
	assert.Equal(t, "Book", saved.Name)
	assert.Equal(t, uint(1), saved.PlatformID)
	assert.Nil(t, saved.Link)
	assert.Equal(t, "Paid", saved.PaymentStatus)
	require.NotNil(t, saved.Comment)
	assert.Equal(t, "gift", *saved.Comment)
}

func TestWizardPlatformByTypedName(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon", "eBay"))
	s := conversation.Session{State: conversation.StateCollectingPlatform}

	next, reply := step(t, m, s, text("Etsy"))
	assert.Equal(t, conversation.StateCollectingPlatform, next.State)
	assert.Equal(t, conversation.ScreenAskPlatform, reply.Screen)
	assert.Len(t, reply.Platforms, 2)

	next, _ = step(t, m, s, text("  EBAY "))
	assert.Equal(t, conversation.StateCollectingLink, next.State)
	assert.Equal(t, uint(2), next.Draft.PlatformID)
}

func TestDraftFieldEditKeepsOtherFields(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	link := "https://example.com/book"
	comment := "gift"
	s := conversation.Session{
		State: conversation.StateConfirming,
		Draft: conversation.Draft{
			Name:          "Book",
			PlatformID:    1,
			PlatformName:  "Amazon",
			Link:          &link,
			PaymentStatus: "Paid",
			Comment:       &comment,
		},
	}
	before := s.Draft

	s, reply := step(t, m, s, conversation.Input{Kind: conversation.InputEditDraft})
	assert.Equal(t, conversation.StateConfirming, s.State)
	assert.Equal(t, conversation.ScreenChooseDraftField, reply.Screen)

	s, reply = step(t, m, s, conversation.Input{Kind: conversation.InputChooseField, Field: types.FieldName})
	assert.Equal(t, conversation.StateEditingDraftField, s.State)
	assert.Equal(t, conversation.ScreenAskDraftValue, reply.Screen)

	s, reply = step(t, m, s, text("Notebook"))
	assert.Equal(t, conversation.StateConfirming, s.State)
	assert.Equal(t, conversation.ScreenReview, reply.Screen)

	want := before
	want.Name = "Notebook"
	assert.Equal(t, want, s.Draft)
}

func TestDraftLeaveEmptyClearsOptionalField(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	comment := "gift"
	s := conversation.Session{
		State: conversation.StateEditingDraftField,
		Draft: conversation.Draft{Name: "Book", PlatformID: 1, Comment: &comment, EditingField: types.FieldComment},
	}

	next, reply := step(t, m, s, conversation.Input{Kind: conversation.InputLeaveEmpty})
	assert.Equal(t, conversation.StateConfirming, next.State)
	assert.Equal(t, conversation.ScreenReview, reply.Screen)
	assert.Nil(t, next.Draft.Comment)
	assert.Equal(t, "Book", next.Draft.Name)

	s.Draft.EditingField = types.FieldName
	next, reply = step(t, m, s, conversation.Input{Kind: conversation.InputLeaveEmpty})
	assert.Equal(t, conversation.ScreenNone, reply.Screen)
	assert.Equal(t, s, next)
}

func TestCancelDiscardsDraft(t *testing.T) {
	store := newFakeStore("Amazon")
	m := conversation.NewMachine(store)
	s := conversation.Session{State: conversation.StateConfirming, Draft: conversation.Draft{Name: "Book", PlatformID: 1}}

	next, reply := step(t, m, s, conversation.Input{Kind: conversation.InputCancel})

	assert.True(t, next.IsIdle())
	assert.Equal(t, conversation.ScreenCancelled, reply.Screen)
	assert.Empty(t, store.added)
}

func TestSaveErrorKeepsSession(t *testing.T) {
	store := newFakeStore("Amazon")
	store.addErr = errors.New("disk full")
	m := conversation.NewMachine(store)
	s := conversation.Session{State: conversation.StateConfirming, Draft: conversation.Draft{Name: "Book", PlatformID: 1}}

	next, _, err := m.Step(context.Background(), s, conversation.Input{Kind: conversation.InputSave})

	assert.Error(t, err)
	assert.Equal(t, s, next)
}

func TestStaleInputIsIgnored(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	s := conversation.Session{State: conversation.StateCollectingName}

	next, reply := step(t, m, s, conversation.Input{Kind: conversation.InputSave})
	assert.Equal(t, conversation.ScreenNone, reply.Screen)
	assert.Equal(t, s, next)

	next, reply = step(t, m, conversation.Session{}, text("hello"))
	assert.Equal(t, conversation.ScreenNone, reply.Screen)
	assert.True(t, next.IsIdle())
}

func TestOrderEditCommitsSingleField(t *testing.T) {
	store := newFakeStore("Amazon")
	link := "https://example.com"
	store.orders[7] = &types.Order{ID: 7, Name: "Book", PlatformID: 1, Link: &link}
	m := conversation.NewMachine(store)

	s, reply := m.StartOrderEdit(7)
	assert.Equal(t, conversation.StateSelectingFieldToEdit, s.State)
	assert.Equal(t, conversation.ScreenChooseOrderField, reply.Screen)

	s, reply = step(t, m, s, conversation.Input{Kind: conversation.InputChooseField, Field: types.FieldLink})
	assert.Equal(t, conversation.StateAwaitingNewValue, s.State)
	assert.Equal(t, types.FieldLink, s.EditField)
	assert.Equal(t, conversation.ScreenAskOrderValue, reply.Screen)

	s, reply = step(t, m, s, conversation.Input{Kind: conversation.InputLeaveEmpty})
	assert.True(t, s.IsIdle())
	assert.Equal(t, conversation.ScreenOrderUpdated, reply.Screen)
	assert.True(t, reply.Cleared)

	require.Len(t, store.patches, 1)
	assert.Equal(t, types.OrderPatch{"link": nil}, store.patches[0])
}

func TestOrderEditPlatformByButton(t *testing.T) {
	store := newFakeStore("Amazon", "eBay")
	store.orders[3] = &types.Order{ID: 3, Name: "Lamp", PlatformID: 1}
	m := conversation.NewMachine(store)
	s := conversation.Session{State: conversation.StateAwaitingNewValue, OrderID: 3, EditField: types.FieldPlatform}

	next, reply := step(t, m, s, conversation.Input{Kind: conversation.InputPlatform, PlatformID: 2})

	assert.True(t, next.IsIdle())
	assert.Equal(t, conversation.ScreenOrderUpdated, reply.Screen)
	require.Len(t, store.patches, 1)
	assert.Equal(t, types.OrderPatch{"platform_id": uint(2)}, store.patches[0])
}

func TestOrderEditOfVanishedOrder(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	s := conversation.Session{State: conversation.StateAwaitingNewValue, OrderID: 42, EditField: types.FieldName}

	next, reply := step(t, m, s, text("Renamed"))

	assert.True(t, next.IsIdle())
	assert.Equal(t, conversation.ScreenOrderMissing, reply.Screen)
}

func TestPlatformAdd(t *testing.T) {
	store := newFakeStore()
	m := conversation.NewMachine(store)

	s, reply := m.StartPlatformAdd()
	assert.Equal(t, conversation.StateAwaitingPlatformName, s.State)
	assert.Equal(t, conversation.ScreenAskPlatformName, reply.Screen)

	next, reply := step(t, m, s, text("   "))
	assert.Equal(t, s, next)
	assert.Equal(t, conversation.ScreenAskPlatformName, reply.Screen)

	next, reply = step(t, m, s, text(" Amazon "))
	assert.True(t, next.IsIdle())
	assert.Equal(t, conversation.ScreenPlatformAdded, reply.Screen)
	assert.Equal(t, []string{"Amazon"}, store.newNames)
}

func TestPlatformAddErrorKeepsPrompt(t *testing.T) {
	store := newFakeStore("Amazon")
	store.platErr = errors.New("duplicate")
	m := conversation.NewMachine(store)
	s, _ := m.StartPlatformAdd()

	next, reply, err := m.Step(context.Background(), s, text("Amazon"))

	assert.Error(t, err)
	assert.Equal(t, s, next)
	assert.Equal(t, "Amazon", reply.Text)
}

func TestBlankNameIsAskedAgain(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	s := conversation.Session{State: conversation.StateCollectingName}

	for _, blank := range []string{"", "   ", "\n\t"} {
		next, reply := step(t, m, s, text(blank))
		assert.Equal(t, s, next)
		assert.Equal(t, conversation.ScreenAskName, reply.Screen)
	}

	next, _ := step(t, m, s, text("  Book  "))
	assert.Equal(t, conversation.StateCollectingPlatform, next.State)
	assert.Equal(t, "Book", next.Draft.Name)
}

func TestDraftNameCannotBeBlanked(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon"))
	s := conversation.Session{
		State: conversation.StateEditingDraftField,
		Draft: conversation.Draft{Name: "Book", PlatformID: 1, PlatformName: "Amazon", EditingField: types.FieldName},
	}

	next, reply := step(t, m, s, text("   "))
	assert.Equal(t, s, next)
	assert.Equal(t, conversation.ScreenAskDraftValue, reply.Screen)
	assert.Equal(t, types.FieldName, reply.Field)

	next, reply = step(t, m, s, conversation.Input{Kind: conversation.InputLeaveEmpty})
	assert.Equal(t, s, next)
	assert.Equal(t, conversation.ScreenNone, reply.Screen)
}

func TestOrderNameCannotBeBlanked(t *testing.T) {
	store := newFakeStore("Amazon")
	store.orders[7] = &types.Order{ID: 7, Name: "Book", PlatformID: 1}
	m := conversation.NewMachine(store)
	s := conversation.Session{State: conversation.StateAwaitingNewValue, OrderID: 7, EditField: types.FieldName}

	next, reply := step(t, m, s, text("  "))
	assert.Equal(t, s, next)
	assert.Equal(t, conversation.ScreenAskOrderValue, reply.Screen)
	assert.Empty(t, store.patches)

	next, reply = step(t, m, s, text(" Novel "))
	assert.True(t, next.IsIdle())
	assert.Equal(t, conversation.ScreenOrderUpdated, reply.Screen)
	require.Len(t, store.patches, 1)
	assert.Equal(t, types.OrderPatch{"name": "Novel"}, store.patches[0])
}

func TestTypedPlatformPrefersExactName(t *testing.T) {
	m := conversation.NewMachine(newFakeStore("Amazon", "amazon"))
	s := conversation.Session{State: conversation.StateCollectingPlatform}

	next, _ := step(t, m, s, text("amazon"))
	assert.Equal(t, uint(2), next.Draft.PlatformID)

	next, _ = step(t, m, s, text("Amazon"))
	assert.Equal(t, uint(1), next.Draft.PlatformID)

	next, _ = step(t, m, s, text("AMAZON"))
	assert.Equal(t, uint(1), next.Draft.PlatformID)
}
