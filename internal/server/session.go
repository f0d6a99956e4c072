package server

import "sync"

// Session is the tracked state for one highlighted buffer.
//
// SessionID, BufferID, Token, FIFOPath, and Sentinel are set at INIT
// and never change.  language and theme are written by the control loop
// (re-INIT, SET_THEME) while the buffer's processor goroutine snapshots
// them per flush, so each sits behind its own mutex.
type Session struct {
	SessionID string
	BufferID  string
	Token     string
	FIFOPath  string
	Sentinel  string

	langMu   sync.Mutex
	language string

	themeMu sync.Mutex
	theme   string
}

// NewSession returns a Session with the given identity and initial
// language and theme.
func NewSession(sessionID, bufferID, token, fifoPath, sentinel, language, theme string) *Session {
	return &Session{
		SessionID: sessionID,
		BufferID:  bufferID,
		Token:     token,
		FIFOPath:  fifoPath,
		Sentinel:  sentinel,
		language:  language,
		theme:     theme,
	}
}

// Language returns the buffer's current language.
func (s *Session) Language() string {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	return s.language
}

// SetLanguage updates the buffer's language.
func (s *Session) SetLanguage(lang string) {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	s.language = lang
}

// Theme returns the buffer's current theme.
func (s *Session) Theme() string {
	s.themeMu.Lock()
	defer s.themeMu.Unlock()
	return s.theme
}

// SetTheme updates the buffer's theme.
func (s *Session) SetTheme(theme string) {
	s.themeMu.Lock()
	defer s.themeMu.Unlock()
	s.theme = theme
}
