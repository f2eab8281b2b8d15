package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/ksred/order-bot/internal/types"
)

// ErrNoPlatforms is returned when order creation starts before any platform exists
var ErrNoPlatforms = errors.New("no platforms to choose from")

// Store is the part of the data store gateway the flows write through
type Store interface {
	ListPlatforms(ctx context.Context) ([]types.Platform, error)
	GetPlatform(ctx context.Context, platformID uint) (*types.Platform, error)
	AddPlatform(ctx context.Context, name string) (*types.Platform, error)
	AddOrder(ctx context.Context, order types.Order) (*types.Order, error)
	UpdateOrder(ctx context.Context, orderID uint, patch types.OrderPatch) (*types.Order, error)
}

// InputKind classifies what the user did
type InputKind int

const (
	InputText       InputKind = iota // free text message
	InputSkip                        // skip the current optional field
	InputPlatform                    // a platform button, PlatformID set
	InputLeaveEmpty                  // clear the field being edited
	InputSave                        // save the reviewed draft
	InputEditDraft                   // open the draft field chooser
	InputChooseField                 // a field button, Field set
	InputBackToReview                // return to the review screen
	InputCancel                      // abandon the current flow
)

// Input is one user action fed into the machine
type Input struct {
	Kind       InputKind
	Text       string
	PlatformID uint
	Field      types.OrderField
}

// Screen tells the presentation layer what to render after a step
type Screen string

const (
	ScreenNone             Screen = "none" // input did not apply to the current state
	ScreenCancelled        Screen = "cancelled"
	ScreenAskName          Screen = "ask_name"
	ScreenAskPlatform      Screen = "ask_platform"
	ScreenAskLink          Screen = "ask_link"
	ScreenAskPaymentStatus Screen = "ask_payment_status"
	ScreenAskComment       Screen = "ask_comment"
	ScreenReview           Screen = "review"
	ScreenChooseDraftField Screen = "choose_draft_field"
	ScreenAskDraftValue    Screen = "ask_draft_value"
	ScreenOrderSaved       Screen = "order_saved"
	ScreenChooseOrderField Screen = "choose_order_field"
	ScreenAskOrderValue    Screen = "ask_order_value"
	ScreenOrderUpdated     Screen = "order_updated"
	ScreenOrderMissing     Screen = "order_missing"
	ScreenAskPlatformName  Screen = "ask_platform_name"
	ScreenPlatformAdded    Screen = "platform_added"
	ScreenPlatformExists   Screen = "platform_exists"
)

// Reply carries the screen to render and the data it needs
type Reply struct {
	Screen    Screen
	Draft     Draft
	Field     types.OrderField
	Platforms []types.Platform
	Order     *types.Order
	Platform  *types.Platform
	Text      string // the rejected or echoed value, e.g. a duplicate platform name
	Cleared   bool   // the edit cleared the field instead of setting it
}

// Machine implements the order creation wizard, the existing-order edit flow and the
// add-platform prompt as explicit transitions over a Session. Every step takes the
// current session and returns the next one; only saving a reviewed draft, committing
// a single-field edit and adding a platform write to the store. When a store write
// fails the input session is returned unchanged alongside the error.
type Machine struct {
	store Store
}

func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// StartCreation enters the wizard. It refuses with ErrNoPlatforms when there is no
// platform to attach the order to; the returned session is then idle.
func (m *Machine) StartCreation(ctx context.Context) (Session, Reply, error) {
	platforms, err := m.store.ListPlatforms(ctx)
	if err != nil {
		return Session{}, Reply{}, err
	}
	if len(platforms) == 0 {
		return Session{}, Reply{}, ErrNoPlatforms
	}
	return Session{State: StateCollectingName}, Reply{Screen: ScreenAskName}, nil
}

// StartOrderEdit opens the field chooser for an existing order
func (m *Machine) StartOrderEdit(orderID uint) (Session, Reply) {
	s := Session{State: StateSelectingFieldToEdit, OrderID: orderID}
	return s, Reply{Screen: ScreenChooseOrderField, Order: &types.Order{ID: orderID}}
}

// StartPlatformAdd prompts for a new platform name
func (m *Machine) StartPlatformAdd() (Session, Reply) {
	return Session{State: StateAwaitingPlatformName}, Reply{Screen: ScreenAskPlatformName}
}

// Step applies one input to the session
func (m *Machine) Step(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	if in.Kind == InputCancel {
		return Session{}, Reply{Screen: ScreenCancelled}, nil
	}

	switch s.State {
	case StateCollectingName:
		return m.collectName(ctx, s, in)
	case StateCollectingPlatform:
		return m.collectPlatform(ctx, s, in)
	case StateCollectingLink:
		return m.collectLink(s, in)
	case StateCollectingPaymentStatus:
		return m.collectPaymentStatus(s, in)
	case StateCollectingComment:
		return m.collectComment(s, in)
	case StateConfirming:
		return m.confirm(ctx, s, in)
	case StateEditingDraftField:
		return m.editDraftField(ctx, s, in)
	case StateSelectingFieldToEdit:
		return m.selectOrderField(ctx, s, in)
	case StateAwaitingNewValue:
		return m.awaitNewValue(ctx, s, in)
	case StateAwaitingPlatformName:
		return m.awaitPlatformName(ctx, s, in)
	}

	return s, Reply{Screen: ScreenNone}, nil
}

func (m *Machine) collectName(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	if in.Kind != InputText {
		return s, Reply{Screen: ScreenNone}, nil
	}
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return s, Reply{Screen: ScreenAskName, Draft: s.Draft}, nil
	}

	platforms, err := m.store.ListPlatforms(ctx)
	if err != nil {
		return s, Reply{}, err
	}

	next := s
	next.Draft.Name = name
	next.State = StateCollectingPlatform
	return next, Reply{Screen: ScreenAskPlatform, Draft: next.Draft, Platforms: platforms}, nil
}

func (m *Machine) collectPlatform(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	platform, platforms, ok, err := m.resolvePlatform(ctx, in)
	if err != nil {
		return s, Reply{}, err
	}
	if !ok {
		return s, Reply{Screen: ScreenAskPlatform, Draft: s.Draft, Platforms: platforms, Text: in.Text}, nil
	}

	next := s
	next.Draft.PlatformID = platform.ID
	next.Draft.PlatformName = platform.Name
	next.State = StateCollectingLink
	return next, Reply{Screen: ScreenAskLink, Draft: next.Draft}, nil
}

func (m *Machine) collectLink(s Session, in Input) (Session, Reply, error) {
	next := s
	switch in.Kind {
	case InputText:
		next.Draft.Link = optional(in.Text)
	case InputSkip:
		next.Draft.Link = nil
	default:
		return s, Reply{Screen: ScreenNone}, nil
	}
	next.State = StateCollectingPaymentStatus
	return next, Reply{Screen: ScreenAskPaymentStatus, Draft: next.Draft}, nil
}

func (m *Machine) collectPaymentStatus(s Session, in Input) (Session, Reply, error) {
	if in.Kind != InputText {
		return s, Reply{Screen: ScreenNone}, nil
	}
	next := s
	next.Draft.PaymentStatus = in.Text
	next.State = StateCollectingComment
	return next, Reply{Screen: ScreenAskComment, Draft: next.Draft}, nil
}

func (m *Machine) collectComment(s Session, in Input) (Session, Reply, error) {
	next := s
	switch in.Kind {
	case InputText:
		next.Draft.Comment = optional(in.Text)
	case InputSkip:
		next.Draft.Comment = nil
	default:
		return s, Reply{Screen: ScreenNone}, nil
	}
	next.State = StateConfirming
	return next, Reply{Screen: ScreenReview, Draft: next.Draft}, nil
}

func (m *Machine) confirm(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	switch in.Kind {
	case InputSave:
		order, err := m.store.AddOrder(ctx, s.Draft.Order())
		if err != nil {
			return s, Reply{}, err
		}
		return Session{}, Reply{Screen: ScreenOrderSaved, Order: order}, nil
	case InputEditDraft:
		return s, Reply{Screen: ScreenChooseDraftField, Draft: s.Draft}, nil
	case InputChooseField:
		return m.openDraftField(ctx, s, in.Field)
	case InputBackToReview:
		return s, Reply{Screen: ScreenReview, Draft: s.Draft}, nil
	}
	return s, Reply{Screen: ScreenNone}, nil
}

func (m *Machine) openDraftField(ctx context.Context, s Session, field types.OrderField) (Session, Reply, error) {
	reply := Reply{Screen: ScreenAskDraftValue, Field: field}
	if field == types.FieldPlatform {
		platforms, err := m.store.ListPlatforms(ctx)
		if err != nil {
			return s, Reply{}, err
		}
		reply.Platforms = platforms
	}

	next := s
	next.Draft.EditingField = field
	next.State = StateEditingDraftField
	reply.Draft = next.Draft
	return next, reply, nil
}

func (m *Machine) editDraftField(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	field := s.Draft.EditingField
	next := s

	switch in.Kind {
	case InputBackToReview:
	case InputChooseField:
		return m.openDraftField(ctx, s, in.Field)
	case InputPlatform:
		if field != types.FieldPlatform {
			return s, Reply{Screen: ScreenNone}, nil
		}
		fallthrough
	case InputText:
		if field == types.FieldPlatform {
			platform, platforms, ok, err := m.resolvePlatform(ctx, in)
			if err != nil {
				return s, Reply{}, err
			}
			if !ok {
				return s, Reply{Screen: ScreenAskDraftValue, Field: field, Draft: s.Draft, Platforms: platforms, Text: in.Text}, nil
			}
			next.Draft.PlatformID = platform.ID
			next.Draft.PlatformName = platform.Name
			break
		}
		if field == types.FieldName && strings.TrimSpace(in.Text) == "" {
			return s, Reply{Screen: ScreenAskDraftValue, Field: field, Draft: s.Draft}, nil
		}
		setDraftText(&next.Draft, field, in.Text)
	case InputLeaveEmpty:
		if !clearDraftField(&next.Draft, field) {
			return s, Reply{Screen: ScreenNone}, nil
		}
	default:
		return s, Reply{Screen: ScreenNone}, nil
	}

	next.Draft.EditingField = ""
	next.State = StateConfirming
	return next, Reply{Screen: ScreenReview, Draft: next.Draft}, nil
}

func (m *Machine) selectOrderField(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	if in.Kind != InputChooseField {
		return s, Reply{Screen: ScreenNone}, nil
	}

	reply := Reply{Screen: ScreenAskOrderValue, Field: in.Field, Order: &types.Order{ID: s.OrderID}}
	if in.Field == types.FieldPlatform {
		platforms, err := m.store.ListPlatforms(ctx)
		if err != nil {
			return s, Reply{}, err
		}
		reply.Platforms = platforms
	}

	next := s
	next.EditField = in.Field
	next.State = StateAwaitingNewValue
	return next, reply, nil
}

func (m *Machine) awaitNewValue(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	patch := types.OrderPatch{}
	cleared := false

	switch in.Kind {
	case InputChooseField:
		return m.selectOrderField(ctx, Session{State: StateSelectingFieldToEdit, OrderID: s.OrderID}, in)
	case InputPlatform:
		if s.EditField != types.FieldPlatform {
			return s, Reply{Screen: ScreenNone}, nil
		}
		fallthrough
	case InputText:
		if s.EditField == types.FieldPlatform {
			platform, platforms, ok, err := m.resolvePlatform(ctx, in)
			if err != nil {
				return s, Reply{}, err
			}
			if !ok {
				return s, Reply{Screen: ScreenAskOrderValue, Field: s.EditField, Platforms: platforms, Order: &types.Order{ID: s.OrderID}, Text: in.Text}, nil
			}
			patch.SetPlatformID(platform.ID)
			break
		}
		value := in.Text
		if s.EditField == types.FieldName {
			value = strings.TrimSpace(value)
			if value == "" {
				return s, Reply{Screen: ScreenAskOrderValue, Field: s.EditField, Order: &types.Order{ID: s.OrderID}}, nil
			}
		}
		if s.EditField.Optional() {
			if _, err := patch.SetText(s.EditField, optional(value)); err != nil {
				return s, Reply{}, err
			}
			cleared = optional(value) == nil
			break
		}
		if _, err := patch.SetText(s.EditField, &value); err != nil {
			return s, Reply{}, err
		}
	case InputLeaveEmpty:
		switch s.EditField {
		case types.FieldLink, types.FieldComment, types.FieldPaymentStatus:
			if _, err := patch.SetText(s.EditField, nil); err != nil {
				return s, Reply{}, err
			}
			cleared = true
		default:
			return s, Reply{Screen: ScreenNone}, nil
		}
	default:
		return s, Reply{Screen: ScreenNone}, nil
	}

	order, err := m.store.UpdateOrder(ctx, s.OrderID, patch)
	if err != nil {
		return s, Reply{}, err
	}
	if order == nil {
		return Session{}, Reply{Screen: ScreenOrderMissing, Order: &types.Order{ID: s.OrderID}}, nil
	}
	return Session{}, Reply{Screen: ScreenOrderUpdated, Order: order, Field: s.EditField, Cleared: cleared}, nil
}

func (m *Machine) awaitPlatformName(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	if in.Kind != InputText {
		return s, Reply{Screen: ScreenNone}, nil
	}

	name := strings.TrimSpace(in.Text)
	if name == "" {
		return s, Reply{Screen: ScreenAskPlatformName}, nil
	}

	platform, err := m.store.AddPlatform(ctx, name)
	if err != nil {
		return s, Reply{Text: name}, err
	}
	return Session{}, Reply{Screen: ScreenPlatformAdded, Platform: platform}, nil
}

// resolvePlatform turns a platform button or a typed platform name into a platform.
// ok is false when nothing matched; platforms is then the current list to offer again.
func (m *Machine) resolvePlatform(ctx context.Context, in Input) (types.Platform, []types.Platform, bool, error) {
	switch in.Kind {
	case InputPlatform:
		platform, err := m.store.GetPlatform(ctx, in.PlatformID)
		if err != nil {
			return types.Platform{}, nil, false, err
		}
		if platform != nil {
			return *platform, nil, true, nil
		}
	case InputText:
	default:
		// a skip or stale button: offer the list again
	}

	platforms, err := m.store.ListPlatforms(ctx)
	if err != nil {
		return types.Platform{}, nil, false, err
	}
	if in.Kind == InputText {
		if platform, ok := findPlatformByName(platforms, in.Text); ok {
			return platform, platforms, true, nil
		}
	}
	return types.Platform{}, platforms, false, nil
}

func setDraftText(d *Draft, field types.OrderField, text string) {
	switch field {
	case types.FieldName:
		d.Name = strings.TrimSpace(text)
	case types.FieldLink:
		d.Link = optional(text)
	case types.FieldPaymentStatus:
		d.PaymentStatus = text
	case types.FieldComment:
		d.Comment = optional(text)
	}
}

func clearDraftField(d *Draft, field types.OrderField) bool {
	switch field {
	case types.FieldLink:
		d.Link = nil
	case types.FieldComment:
		d.Comment = nil
	case types.FieldPaymentStatus:
		d.PaymentStatus = ""
	default:
		return false
	}
	return true
}
