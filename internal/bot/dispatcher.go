package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/orders"
	"github.com/ksred/order-bot/internal/pagination"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/ksred/order-bot/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the data store gateway as seen by the dispatcher
type Store interface {
	conversation.Store
	DeletePlatform(ctx context.Context, platformID uint) error
	GetOrder(ctx context.Context, orderID uint) (*types.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]types.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	DeleteOrder(ctx context.Context, orderID uint) error
}

// Config holds the dispatcher settings
type Config struct {
	AdminIDs           []int64
	OrdersPerPage      int
	Location           *time.Location // display zone for order cards
	SheetURL           string
	RateLimitPerMinute int // zero disables per-user rate limiting
}

// Dispatcher routes inbound events through the access gate, the conversation machine
// and the store, and renders the outcome. Events of one user are handled one at a time;
// different users are handled concurrently.
type Dispatcher struct {
	gate     *AccessGate
	store    Store
	sessions conversation.SessionStore
	machine  *conversation.Machine
	pager    *pagination.Engine
	loc      *time.Location
	sheetURL string
	visitors *visitors
}

func NewDispatcher(store Store, sessions conversation.SessionStore, cfg Config) *Dispatcher {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		gate:     NewAccessGate(cfg.AdminIDs),
		store:    store,
		sessions: sessions,
		machine:  conversation.NewMachine(store),
		pager:    pagination.NewEngine(store, cfg.OrdersPerPage),
		loc:      loc,
		sheetURL: cfg.SheetURL,
		visitors: newVisitors(cfg.RateLimitPerMinute),
	}
}

// Run evicts idle per-user state until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.visitors.run(ctx)
}

// turn is the state of handling one event
type turn struct {
	ev      Event
	session conversation.Session
	dirty   bool
	answer  *Action
	resp    Response
	logger  zerolog.Logger
}

func (t *turn) setSession(s conversation.Session) {
	t.session = s
	t.dirty = true
}

// show replaces the pressed message for button presses and sends a new one for texts
func (t *turn) show(text string, kb Keyboard) {
	if t.ev.IsCallback() && t.ev.MessageID != 0 {
		t.resp.add(Action{Kind: ActionEdit, ChatID: t.ev.ChatID, MessageID: t.ev.MessageID, Text: text, Keyboard: kb})
		return
	}
	t.send(text, kb)
}

func (t *turn) send(text string, kb Keyboard) {
	t.resp.add(Action{Kind: ActionSend, ChatID: t.ev.ChatID, Text: text, Keyboard: kb})
}

// notice answers a button press, or sends a message for texts
func (t *turn) notice(text string, alert bool) {
	if t.ev.IsCallback() {
		t.answer = &Action{Kind: ActionAnswer, CallbackID: t.ev.CallbackID, Text: text, Alert: alert}
		return
	}
	t.send(text, nil)
}

// vanished handles a button that points at a deleted entity
func (t *turn) vanished(text string) {
	t.notice(text, true)
	if t.ev.IsCallback() && t.ev.MessageID != 0 {
		t.resp.add(Action{Kind: ActionDelete, ChatID: t.ev.ChatID, MessageID: t.ev.MessageID})
	}
}

func (t *turn) response() Response {
	if !t.ev.IsCallback() {
		return t.resp
	}
	answer := Action{Kind: ActionAnswer, CallbackID: t.ev.CallbackID}
	if t.answer != nil {
		answer = *t.answer
	}
	return Response{Actions: append([]Action{answer}, t.resp.Actions...)}
}

// Handle processes one event and returns what to render. It never fails; errors become notices.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (resp Response) {
	t := &turn{
		ev: ev,
		logger: log.With().
			Str("component", "dispatcher").
			Int64("user_id", ev.UserID).
			Int64("chat_id", ev.ChatID).
			Logger(),
	}

	if err := d.gate.Check(ev); err != nil {
		t.logger.Warn().Bool("has_user", ev.HasUser).Msg("access denied")
		t.notice(presentation.AccessDenied, true)
		return t.response()
	}

	allowed, release := d.visitors.acquire(ev.UserID)
	defer release()
	if !allowed {
		t.logger.Warn().Msg("rate limit exceeded")
		t.notice(presentation.TooMany, false)
		return t.response()
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("event handler panicked")
			t.resp = Response{}
			t.answer = nil
			t.notice(presentation.StoreFailed, true)
			resp = t.response()
		}
	}()

	session, err := d.sessions.Get(ctx, ev.UserID)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to load session")
		t.notice(presentation.StoreFailed, true)
		return t.response()
	}
	t.session = session

	if ev.IsCallback() {
		d.handleCallback(ctx, t)
	} else {
		d.handleText(ctx, t)
	}

	if t.dirty {
		if err := d.sessions.Put(ctx, ev.UserID, t.session); err != nil {
			t.logger.Error().Err(err).Msg("failed to save session")
		}
	}
	return t.response()
}

func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

func (d *Dispatcher) handleText(ctx context.Context, t *turn) {
	text := strings.TrimSpace(t.ev.Text)

	switch {
	case command(text) == "/start":
		t.setSession(conversation.Session{})
		t.resp.add(Action{Kind: ActionSend, ChatID: t.ev.ChatID, Text: presentation.Welcome, ReplyMenu: true})
		t.send(presentation.MainMenu, mainMenuKeyboard())
	case command(text) == "/help":
		t.send(presentation.Help, nil)
	case command(text) == "/cancel", text == presentation.MainMenuButton:
		wasActive := !t.session.IsIdle()
		t.setSession(conversation.Session{})
		if wasActive {
			t.send(presentation.Cancelled, nil)
		}
		t.send(presentation.MainMenu, mainMenuKeyboard())
	case text == presentation.SheetButton:
		t.send(presentation.SheetLink(d.sheetURL), nil)
	case t.session.IsIdle():
		t.send(presentation.MainMenu, mainMenuKeyboard())
	default:
		d.step(ctx, t, conversation.Input{Kind: conversation.InputText, Text: t.ev.Text})
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, t *turn) {
	cb, err := Decode(t.ev.CallbackData)
	if err != nil {
		t.logger.Debug().Err(err).Msg("ignoring malformed callback")
		return
	}

	switch cb.Action {
	case CbNoop:
	case CbMainMenu:
		t.setSession(conversation.Session{})
		t.show(presentation.MainMenu, mainMenuKeyboard())
	case CbCreateOrder:
		d.startCreation(ctx, t)
	case CbOrders:
		d.showOrders(ctx, t, cb.Page())
	case CbOrder:
		d.withID(t, cb, func(id uint) { d.showOrder(ctx, t, id) })
	case CbOrderEdit:
		d.withID(t, cb, func(id uint) { d.startOrderEdit(ctx, t, id) })
	case CbOrderDelete:
		d.withID(t, cb, func(id uint) { d.confirmOrderDelete(ctx, t, id) })
	case CbOrderDeleteOK:
		d.withID(t, cb, func(id uint) { d.deleteOrder(ctx, t, id) })
	case CbPlatforms:
		d.showPlatforms(ctx, t)
	case CbPlatformAdd:
		s, reply := d.machine.StartPlatformAdd()
		t.setSession(s)
		d.render(ctx, t, reply)
	case CbPlatformDelMenu:
		d.showPlatformDeletePicker(ctx, t)
	case CbPlatformDelete:
		d.withID(t, cb, func(id uint) { d.deletePlatform(ctx, t, id) })
	default:
		in, ok := callbackInput(cb)
		if !ok {
			t.logger.Debug().Str("action", cb.Action).Msg("ignoring unknown callback")
			return
		}
		d.step(ctx, t, in)
	}
}

func (d *Dispatcher) withID(t *turn, cb Callback, fn func(id uint)) {
	id, err := cb.ID()
	if err != nil {
		t.logger.Debug().Err(err).Msg("ignoring callback without id")
		return
	}
	fn(id)
}

// callbackInput maps wizard and edit buttons onto machine inputs
func callbackInput(cb Callback) (conversation.Input, bool) {
	switch cb.Action {
	case CbPlatformPick:
		id, err := cb.ID()
		if err != nil {
			return conversation.Input{}, false
		}
		return conversation.Input{Kind: conversation.InputPlatform, PlatformID: id}, true
	case CbField:
		field, err := types.ParseOrderField(cb.Param)
		if err != nil {
			return conversation.Input{}, false
		}
		return conversation.Input{Kind: conversation.InputChooseField, Field: field}, true
	case CbSkip:
		return conversation.Input{Kind: conversation.InputSkip}, true
	case CbLeaveEmpty:
		return conversation.Input{Kind: conversation.InputLeaveEmpty}, true
	case CbSave:
		return conversation.Input{Kind: conversation.InputSave}, true
	case CbEditDraft:
		return conversation.Input{Kind: conversation.InputEditDraft}, true
	case CbReview:
		return conversation.Input{Kind: conversation.InputBackToReview}, true
	case CbCancel:
		return conversation.Input{Kind: conversation.InputCancel}, true
	}
	return conversation.Input{}, false
}

func (d *Dispatcher) step(ctx context.Context, t *turn, in conversation.Input) {
	next, reply, err := d.machine.Step(ctx, t.session, in)
	if err != nil {
		if errors.Is(err, orders.ErrDuplicateName) {
			t.show(presentation.PlatformExists(reply.Text), Keyboard{cancelRow})
			return
		}
		d.fail(t, "step", err)
		return
	}
	t.setSession(next)
	d.render(ctx, t, reply)
}

func (d *Dispatcher) fail(t *turn, action string, err error) {
	t.logger.Error().Err(err).Str("action", action).Msg("store operation failed")
	t.notice(presentation.StoreFailed, true)
}

// render turns a machine reply into actions
func (d *Dispatcher) render(ctx context.Context, t *turn, reply conversation.Reply) {
	switch reply.Screen {
	case conversation.ScreenNone:
		if !t.ev.IsCallback() {
			t.send(presentation.UseButtons, nil)
		}
	case conversation.ScreenCancelled:
		t.show(presentation.Cancelled, nil)
		t.send(presentation.MainMenu, mainMenuKeyboard())
	case conversation.ScreenAskName:
		t.show(presentation.AskName, Keyboard{cancelRow})
	case conversation.ScreenAskPlatform:
		text := presentation.AskPlatform
		if reply.Text != "" {
			text = presentation.UnknownPlatform + "\n" + text
		}
		t.show(text, platformPickerKeyboard(reply.Platforms, cancelRow))
	case conversation.ScreenAskLink:
		t.show(presentation.AskLink, skipKeyboard())
	case conversation.ScreenAskPaymentStatus:
		t.show(presentation.AskPaymentStatus, Keyboard{cancelRow})
	case conversation.ScreenAskComment:
		t.show(presentation.AskComment, skipKeyboard())
	case conversation.ScreenReview:
		t.show(presentation.DraftReview(reply.Draft), reviewKeyboard())
	case conversation.ScreenChooseDraftField:
		t.show(presentation.ChooseDraftField, fieldChooserKeyboard(button("⬅️ Back", CbReview)))
	case conversation.ScreenAskDraftValue:
		text := presentation.AskFieldValue(reply.Field)
		if reply.Text != "" {
			text = presentation.UnknownPlatform + "\n" + text
		}
		t.show(text, valueKeyboard(reply.Field, reply.Platforms, button("⬅️ Back to review", CbReview)))
	case conversation.ScreenOrderSaved:
		t.show(presentation.OrderSaved(reply.Order), nil)
		t.send(presentation.MainMenu, mainMenuKeyboard())
	case conversation.ScreenChooseOrderField:
		t.show(presentation.ChooseOrderField, fieldChooserKeyboard(button("⬅️ Back", CbOrder, reply.Order.ID)))
	case conversation.ScreenAskOrderValue:
		text := presentation.AskFieldValue(reply.Field)
		if reply.Text != "" {
			text = presentation.UnknownPlatform + "\n" + text
		}
		t.show(text, valueKeyboard(reply.Field, reply.Platforms, button("⬅️ Back", CbOrder, reply.Order.ID)))
	case conversation.ScreenOrderUpdated:
		t.show(presentation.FieldUpdated(reply.Field, reply.Cleared), nil)
		t.send(presentation.OrderDetails(reply.Order, d.loc), orderDetailsKeyboard(reply.Order.ID))
	case conversation.ScreenOrderMissing:
		t.show(presentation.OrderNotFound, nil)
		t.send(presentation.MainMenu, mainMenuKeyboard())
	case conversation.ScreenAskPlatformName:
		t.show(presentation.AskPlatformName, Keyboard{cancelRow})
	case conversation.ScreenPlatformAdded:
		t.show(presentation.PlatformAdded(reply.Platform), nil)
		platforms, err := d.store.ListPlatforms(ctx)
		if err != nil {
			d.fail(t, "list_platforms", err)
			return
		}
		t.send(presentation.PlatformList(platforms), platformMenuKeyboard())
	default:
		t.logger.Warn().Str("screen", string(reply.Screen)).Msg("no renderer for screen")
	}
}

func (d *Dispatcher) startCreation(ctx context.Context, t *turn) {
	s, reply, err := d.machine.StartCreation(ctx)
	if errors.Is(err, conversation.ErrNoPlatforms) {
		t.setSession(conversation.Session{})
		t.notice(presentation.NoPlatformsForOrder, true)
		return
	}
	if err != nil {
		d.fail(t, "start_creation", err)
		return
	}
	t.setSession(s)
	d.render(ctx, t, reply)
}

func (d *Dispatcher) showOrders(ctx context.Context, t *turn, number int) {
	page, err := d.pager.Page(ctx, number)
	if err != nil {
		d.fail(t, "list_orders", err)
		return
	}
	t.show(presentation.OrderListHeader(page), ordersKeyboard(page))
}

func (d *Dispatcher) showOrder(ctx context.Context, t *turn, orderID uint) {
	switch t.session.State {
	case conversation.StateSelectingFieldToEdit, conversation.StateAwaitingNewValue:
		// leaving an unfinished edit for the card ends it
		t.setSession(conversation.Session{})
	}

	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		d.fail(t, "get_order", err)
		return
	}
	if order == nil {
		t.vanished(presentation.OrderNotFound)
		return
	}
	t.show(presentation.OrderDetails(order, d.loc), orderDetailsKeyboard(order.ID))
}

func (d *Dispatcher) startOrderEdit(ctx context.Context, t *turn, orderID uint) {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		d.fail(t, "get_order", err)
		return
	}
	if order == nil {
		t.vanished(presentation.OrderNotFound)
		return
	}
	s, reply := d.machine.StartOrderEdit(order.ID)
	t.setSession(s)
	d.render(ctx, t, reply)
}

func (d *Dispatcher) confirmOrderDelete(ctx context.Context, t *turn, orderID uint) {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		d.fail(t, "get_order", err)
		return
	}
	if order == nil {
		t.vanished(presentation.OrderNotFound)
		return
	}
	t.show(presentation.DeleteOrderPrompt(order), deleteConfirmKeyboard(order.ID))
}

func (d *Dispatcher) deleteOrder(ctx context.Context, t *turn, orderID uint) {
	if err := d.store.DeleteOrder(ctx, orderID); err != nil {
		d.fail(t, "delete_order", err)
		return
	}
	t.notice(presentation.OrderDeleted, false)
	d.showOrders(ctx, t, 1)
}

func (d *Dispatcher) showPlatforms(ctx context.Context, t *turn) {
	platforms, err := d.store.ListPlatforms(ctx)
	if err != nil {
		d.fail(t, "list_platforms", err)
		return
	}
	t.show(presentation.PlatformMenu+"\n\n"+presentation.PlatformList(platforms), platformMenuKeyboard())
}

func (d *Dispatcher) showPlatformDeletePicker(ctx context.Context, t *turn) {
	platforms, err := d.store.ListPlatforms(ctx)
	if err != nil {
		d.fail(t, "list_platforms", err)
		return
	}
	if len(platforms) == 0 {
		t.notice(presentation.NoPlatformsToDelete, true)
		return
	}
	t.show(presentation.ChoosePlatformDelete, deletePlatformKeyboard(platforms))
}

func (d *Dispatcher) deletePlatform(ctx context.Context, t *turn, platformID uint) {
	err := d.store.DeletePlatform(ctx, platformID)
	if errors.Is(err, orders.ErrReferentialIntegrity) {
		t.notice(presentation.PlatformInUse, true)
		return
	}
	if err != nil {
		d.fail(t, "delete_platform", fmt.Errorf("platform %d: %w", platformID, err))
		return
	}

	t.notice(presentation.PlatformDeleted, false)

	platforms, err := d.store.ListPlatforms(ctx)
	if err != nil {
		d.fail(t, "list_platforms", err)
		return
	}
	if len(platforms) == 0 {
		t.show(presentation.AllPlatformsRemoved, platformMenuKeyboard())
		return
	}
	t.show(presentation.ChoosePlatformDelete, deletePlatformKeyboard(platforms))
}
