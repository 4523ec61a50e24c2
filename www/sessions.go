package www

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "floorwatch_session"
	prefsKey    = "prefs"
)

// Preferences are per-browser operator settings kept in the session cookie.
type Preferences struct {
	DisplayName          string `json:"displayName"`
	RefreshSeconds       int    `json:"refreshSeconds"`
	TemperatureUnit      string `json:"temperatureUnit"` // "C" or "F"
	EmailAlerts          bool   `json:"emailAlerts"`
	PushNotifications    bool   `json:"pushNotifications"`
	MaintenanceReminders bool   `json:"maintenanceReminders"`
}

// DefaultPreferences mirrors the switches' initial positions on the settings page.
func DefaultPreferences() Preferences {
	return Preferences{
		DisplayName:          "Admin User",
		RefreshSeconds:       30,
		TemperatureUnit:      "C",
		EmailAlerts:          true,
		PushNotifications:    true,
		MaintenanceReminders: true,
	}
}

func (p Preferences) validate() error {
	if p.TemperatureUnit != "C" && p.TemperatureUnit != "F" {
		return fmt.Errorf("temperature unit must be C or F")
	}
	if p.RefreshSeconds < 0 || p.RefreshSeconds > 3600 {
		return fmt.Errorf("refresh interval must be between 0 and 3600 seconds")
	}
	return nil
}

type sessionStore struct {
	store *sessions.CookieStore
}

func newSessionStore(secret string) *sessionStore {
	var key []byte
	if secret != "" {
		key, _ = base64.StdEncoding.DecodeString(secret)
	}
	if len(key) < 32 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	cs := sessions.NewCookieStore(key)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60, // 30 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionStore{store: cs}
}

func (s *sessionStore) get(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, sessionName)
	return sess
}

// preferences returns the stored preferences, or the defaults.
func (s *sessionStore) preferences(r *http.Request) Preferences {
	prefs := DefaultPreferences()
	raw, ok := s.get(r).Values[prefsKey].(string)
	if !ok {
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return DefaultPreferences()
	}
	return prefs
}

func (s *sessionStore) savePreferences(w http.ResponseWriter, r *http.Request, prefs Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	sess := s.get(r)
	sess.Values[prefsKey] = string(data)
	return sess.Save(r, w)
}
