package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxCallbackData is the Bot API limit for callback payloads in bytes
const MaxCallbackData = 64

var ErrCallbackTooLong = errors.New("callback payload exceeds 64 bytes")

// Callback actions
const (
	CbNoop            = "noop"
	CbMainMenu        = "menu"
	CbCreateOrder     = "create"
	CbOrders          = "orders"   // page
	CbOrder           = "order"    // order id
	CbOrderEdit       = "o_edit"   // order id
	CbOrderDelete     = "o_del"    // order id
	CbOrderDeleteOK   = "o_del_ok" // order id
	CbPlatforms       = "platforms"
	CbPlatformAdd     = "p_add"
	CbPlatformDelMenu = "p_del_menu"
	CbPlatformDelete  = "p_del"  // platform id
	CbPlatformPick    = "p_pick" // platform id
	CbSkip            = "skip"
	CbLeaveEmpty      = "empty"
	CbSave            = "save"
	CbEditDraft       = "edit_draft"
	CbField           = "field" // field name
	CbReview          = "review"
	CbCancel          = "cancel"
)

// Callback is a decoded button payload: an action and at most one parameter
type Callback struct {
	Action string
	Param  string
}

// Encode packs action and an optional parameter as "action:param"
func Encode(action string, param ...interface{}) (string, error) {
	data := action
	if len(param) > 0 {
		data = fmt.Sprintf("%s:%v", action, param[0])
	}
	if len(data) > MaxCallbackData {
		return "", ErrCallbackTooLong
	}
	return data, nil
}

// mustEncode is for payloads built from fixed actions and numeric ids, which always fit
func mustEncode(action string, param ...interface{}) string {
	data, err := Encode(action, param...)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode splits a payload produced by Encode
func Decode(data string) (Callback, error) {
	if data == "" {
		return Callback{}, errors.New("empty callback payload")
	}
	action, param, _ := strings.Cut(data, ":")
	return Callback{Action: action, Param: param}, nil
}

// ID parses the parameter as an entity id
func (c Callback) ID() (uint, error) {
	id, err := strconv.ParseUint(c.Param, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id in %q callback: %w", c.Action, err)
	}
	return uint(id), nil
}

// Page parses the parameter as a page number, defaulting to 1
func (c Callback) Page() int {
	page, err := strconv.Atoi(c.Param)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
