package somecomfort

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	hahoneywell "github.com/nabbi/ha-honeywell"
)

const dataSessionBody = `{
	"success": true,
	"deviceLive": true,
	"latestData": {
		"uiData": {
			"DispTemperature": 21.5,
			"HeatSetpoint": 20,
			"CoolSetpoint": 25,
			"StatusHeat": 0,
			"StatusCool": 2,
			"SystemSwitchPosition": 3,
			"IndoorHumidity": 42,
			"IndoorHumiditySensorAvailable": true,
			"OutdoorTemperature": 12.5,
			"OutdoorTemperatureAvailable": true
		},
		"humidification": {
			"CanControlHumidification": true,
			"HumidificationMode": 1,
			"HumidificationSetPoint": 35,
			"HumidificationLowerLimit": 10,
			"HumidificationUpperLimit": 60
		}
	}
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:  server.URL,
		Username: "user@example.com",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestLoginSetsSessionCookie(t *testing.T) {
	var loginForm string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		loginForm = string(body)
		http.SetCookie(w, &http.Cookie{Name: ".ASPXAUTH_TRUEHOME", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(loginForm, "UserName=user%40example.com") {
		t.Fatalf("unexpected login form: %q", loginForm)
	}
}

func TestLoginNullCookieIsSiteDown(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 but no session cookie: the portal is broken, not the creds
		w.WriteHeader(http.StatusOK)
	}))

	err := client.Login(context.Background())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !IsSiteDown(err) {
		t.Fatalf("expected site-down signature, got %v", err)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Login(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if IsSiteDown(err) {
		t.Fatalf("credential rejection must not look like site-down: %v", err)
	}
}

func TestRefreshParsesSnapshot(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, dataSessionBody)
	}))

	dev := &Device{client: client, id: 42, name: "Downstairs"}
	if err := dev.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	st := dev.State()
	if st.Mode != hahoneywell.SystemModeCool {
		t.Fatalf("mode = %q, want cool", st.Mode)
	}
	if st.HoldHeat != hahoneywell.HoldNone || st.HoldCool != hahoneywell.HoldTemporary {
		t.Fatalf("hold codes = %d/%d, want 0/2", st.HoldHeat, st.HoldCool)
	}
	if st.CurrentHumidity == nil || *st.CurrentHumidity != 42 {
		t.Fatalf("humidity = %v, want 42", st.CurrentHumidity)
	}
	if !st.Humidifier.Present || st.Humidifier.Setpoint != 35 {
		t.Fatalf("humidifier = %+v", st.Humidifier)
	}
	if len(dev.Raw()) == 0 {
		t.Fatalf("raw payload not retained")
	}
}

func TestRefreshErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, "", IsUnauthorized},
		{"rate limited", http.StatusTooManyRequests, "", IsTransient},
		{"server error", http.StatusInternalServerError, "", IsTransient},
		{"malformed body", http.StatusOK, "not json", func(err error) bool {
			var ue *UnexpectedResponseError
			return errors.As(err, &ue)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			dev := &Device{client: client, id: 1, name: "t"}
			err := dev.Refresh(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !tt.check(err) {
				t.Fatalf("wrong classification for %v", err)
			}
		})
	}
}

func TestSubmitControlChanges(t *testing.T) {
	var lastPayload map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Device/SubmitControlScreenChanges" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &lastPayload); err != nil {
			t.Fatalf("payload not json: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":1}`)
	}))
	dev := &Device{client: client, id: 7, name: "t"}

	until := hahoneywell.TimeOfDay{Hour: 2, Minute: 30}
	if err := dev.SetHoldHeatUntil(context.Background(), until, 21); err != nil {
		t.Fatalf("set hold heat until: %v", err)
	}
	if lastPayload["StatusHeat"].(float64) != 2 {
		t.Fatalf("StatusHeat = %v, want temporary (2)", lastPayload["StatusHeat"])
	}
	if lastPayload["HeatNextPeriod"].(float64) != 10 {
		t.Fatalf("HeatNextPeriod = %v, want 10 (02:30)", lastPayload["HeatNextPeriod"])
	}

	if err := dev.SetHoldCoolTemp(context.Background(), true, 12); err != nil {
		t.Fatalf("set hold cool temp: %v", err)
	}
	if lastPayload["StatusCool"].(float64) != 3 {
		t.Fatalf("StatusCool = %v, want permanent (3)", lastPayload["StatusCool"])
	}
}

func TestSubmitRejectedIsDeviceError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":0}`)
	}))
	dev := &Device{client: client, id: 7, name: "t"}

	err := dev.SetHeatSetpoint(context.Background(), 21)
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
}
