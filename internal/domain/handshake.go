package domain

import (
	"fmt"
	"time"
)

// ConnectionState is the account-linking state machine position
type ConnectionState string

const (
	StateDisconnected    ConnectionState = "disconnected"
	StateAwaitingPopup   ConnectionState = "awaiting_popup"
	StateAwaitingMessage ConnectionState = "awaiting_message"
	StateConnected       ConnectionState = "connected"
)

// MessageSource is the sentinel the sign-in popup puts in every message
const MessageSource = "target-onchain"

const (
	PopupWindowName = "merchantWindow"
	PopupWidth      = 600
	PopupHeight     = 400
)

// AccountLink is what the connection card displays
type AccountLink struct {
	Connected   bool   `json:"connected"`
	AccountName string `json:"accountName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Screen is the size of the opener's screen in logical pixels
type Screen struct {
	Width  int `json:"screenWidth"`
	Height int `json:"screenHeight"`
}

// PopupSpec tells the browser how to open the sign-in window
type PopupSpec struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Features string `json:"features"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Left     int    `json:"left"`
	Top      int    `json:"top"`
}

// NewPopupSpec centres a fixed-size popup on the given screen
func NewPopupSpec(signInURL string, screen Screen) PopupSpec {
	left := screen.Width/2 - PopupWidth/2
	top := screen.Height/2 - PopupHeight/2
	return PopupSpec{
		URL:      signInURL,
		Name:     PopupWindowName,
		Features: fmt.Sprintf("width=%d,height=%d,top=%d,left=%d", PopupWidth, PopupHeight, top, left),
		Width:    PopupWidth,
		Height:   PopupHeight,
		Left:     left,
		Top:      top,
	}
}

// WindowEventType classifies events relayed from the browser
type WindowEventType string

const (
	EventPopupOpened  WindowEventType = "opened"
	EventPopupBlocked WindowEventType = "blocked"
	EventMessage      WindowEventType = "message"
	EventPopupUnload  WindowEventType = "unload"
	// EventCancel is published by the server, never relayed from the page
	EventCancel WindowEventType = "cancel"
)

// MessageData is the payload the popup posts to its opener
type MessageData struct {
	Source string `json:"source"`
	Token  string `json:"token"`
}

// WindowEvent is the typed envelope for everything the browser relays
type WindowEvent struct {
	Type   WindowEventType `json:"type"`
	Origin string          `json:"origin,omitempty"`
	Data   MessageData     `json:"data"`
}

// Handshake is the externally visible snapshot of one connect attempt
type Handshake struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"-"`
	State       ConnectionState `json:"state"`
	Popup       PopupSpec       `json:"popup"`
	AccountName string          `json:"accountName,omitempty"`
	AvatarURL   string          `json:"avatarUrl,omitempty"`
	ClosePopup  bool            `json:"closePopup"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
