package portal

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ericogr/co2-monitor/pkg/config"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

// ClientWindow is how long a remote host counts as connected after its last
// request.
const ClientWindow = 60 * time.Second

// Events are raised by HTTP handlers and consumed by the main loop.
type Events struct {
	Viewed  bool
	Saved   bool
	Restart bool
}

// Server serves the settings page. Handlers run on net/http goroutines and
// only touch state under mu; the main loop reads it through Clients, Drain
// and Config.
type Server struct {
	mu     sync.Mutex
	cfg    config.Config
	path   string
	seen   map[string]time.Time
	events Events

	now    func() time.Time
	log    *slog.Logger
	router *mux.Router
	srv    *http.Server
	addr   string
}

// NewServer serves cfg and saves changes to path. ota may be nil when
// firmware updates are disabled.
func NewServer(cfg config.Config, path string, ota *Updater, log *slog.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		path: path,
		seen: make(map[string]time.Time),
		now:  time.Now,
		log:  log.With(slog.String("component", "portal")),
	}
	r := mux.NewRouter()
	r.Use(s.track, s.auth)
	r.HandleFunc("/", s.handleForm).Methods(http.MethodGet)
	r.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/restart", s.handleRestart).Methods(http.MethodPost)
	// firmware upload replaces the running binary; never without a password
	switch {
	case ota != nil && cfg.Portal.Password != "":
		r.Handle("/update", ota).Methods(http.MethodPut)
	case ota != nil:
		s.log.Warn("firmware update disabled: no portal password set")
	}
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start listens on cfg.Portal.Listen and serves in the background. Calling
// it again while serving is a no-op.
func (s *Server) Start() error {
	if s.srv != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Portal.Listen)
	if err != nil {
		return fmt.Errorf("portal listen: %w", err)
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.log.Info("portal open", "addr", s.addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("portal stopped", "error", err)
		}
	}()
	return nil
}

// Addr is the bound listen address once started.
func (s *Server) Addr() string { return s.addr }

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Clients returns the number of distinct remote hosts seen within
// ClientWindow.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for host, at := range s.seen {
		if now.Sub(at) > ClientWindow {
			delete(s.seen, host)
		}
	}
	return len(s.seen)
}

// Drain returns and clears the pending events.
func (s *Server) Drain() Events {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events
	s.events = Events{}
	return ev
}

// Config returns the settings as last saved.
func (s *Server) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		s.mu.Lock()
		s.seen[host] = s.now()
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// auth requires the portal password, when one is set, as the basic auth
// password. The user name is ignored.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.Config().Portal.Password
		if want != "" {
			_, got, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="co2-monitor"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type formData struct {
	Config    config.Config
	Languages []string
	Message   string
	Error     string
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.events.Viewed = true
	cfg := s.cfg
	s.mu.Unlock()
	s.render(w, http.StatusOK, formData{Config: cfg})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config()
	if err := applyForm(r, &cfg); err != nil {
		s.render(w, http.StatusBadRequest, formData{Config: cfg, Error: err.Error()})
		return
	}
	if err := cfg.Validate(); err != nil {
		s.render(w, http.StatusBadRequest, formData{Config: cfg, Error: err.Error()})
		return
	}
	if err := cfg.Save(s.path); err != nil {
		s.log.Error("save failed", "path", s.path, "error", err)
		s.render(w, http.StatusInternalServerError, formData{Config: cfg, Error: err.Error()})
		return
	}
	s.log.Info("settings saved", "path", s.path)

	s.mu.Lock()
	s.cfg = cfg
	s.events.Saved = true
	s.mu.Unlock()
	s.render(w, http.StatusOK, formData{Config: cfg, Message: "Saved"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.events.Restart = true
	s.mu.Unlock()
	_, _ = fmt.Fprintln(w, "restarting")
}

func (s *Server) render(w http.ResponseWriter, status int, data formData) {
	data.Languages = texts.Languages()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, data); err != nil {
		s.log.Warn("render form", "error", err)
	}
}

// applyForm copies submitted fields into cfg. Unchecked checkboxes are not
// sent by browsers and therefore turn the setting off.
func applyForm(r *http.Request, cfg *config.Config) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	cfg.WiFiEnabled = r.PostFormValue("wifi_enabled") == "on"
	cfg.OTAEnabled = r.PostFormValue("ota_enabled") == "on"
	cfg.MQTTEnabled = r.PostFormValue("mqtt_enabled") == "on"

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"language", &cfg.Language},
		{"portal_password", &cfg.Portal.Password},
		{"mqtt_server", &cfg.MQTT.Server},
		{"mqtt_username", &cfg.MQTT.Username},
		{"mqtt_password", &cfg.MQTT.Password},
		{"mqtt_topic", &cfg.MQTT.Topic},
		{"mqtt_template", &cfg.MQTT.Template},
	} {
		if v, ok := r.PostForm[f.key]; ok {
			*f.dst = v[0]
		}
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"co2_warning", &cfg.CO2Warning},
		{"co2_critical", &cfg.CO2Critical},
		{"co2_blink", &cfg.CO2Blink},
		{"mqtt_port", &cfg.MQTT.Port},
		{"max_failures", &cfg.MaxFailures},
		{"mqtt_interval", &cfg.MQTTInterval},
	} {
		v := r.PostFormValue(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", f.key, v)
		}
		*f.dst = n
	}
	return nil
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html><head><meta name="viewport" content="width=device-width"><title>{{.Config.Hostname}}</title></head>
<body>
<h1>{{.Config.Hostname}}</h1>
{{with .Message}}<p><b>{{.}}</b></p>{{end}}
{{with .Error}}<p style="color:red">{{.}}</p>{{end}}
<form method="post" action="/save">
<p><label><input type="checkbox" name="wifi_enabled"{{if .Config.WiFiEnabled}} checked{{end}}> Use network</label></p>
<p><label><input type="checkbox" name="ota_enabled"{{if .Config.OTAEnabled}} checked{{end}}> Enable wireless reprogramming (uses portal password)</label></p>
<p><label>Portal password <input type="password" name="portal_password" value="{{.Config.Portal.Password}}"></label></p>
<p><label>Language <select name="language">{{$lang := .Config.Language}}{{range .Languages}}<option{{if eq . $lang}} selected{{end}}>{{.}}</option>{{end}}</select></label></p>
<h2>CO2 levels</h2>
<p><label>Yellow from [ppm] <input type="number" name="co2_warning" min="400" max="5000" value="{{.Config.CO2Warning}}"></label></p>
<p><label>Red from [ppm] <input type="number" name="co2_critical" min="400" max="5000" value="{{.Config.CO2Critical}}"></label></p>
<p><label>Red blinking from [ppm] <input type="number" name="co2_blink" min="800" max="5000" value="{{.Config.CO2Blink}}"></label></p>
<h2>MQTT</h2>
<p><label><input type="checkbox" name="mqtt_enabled"{{if .Config.MQTTEnabled}} checked{{end}}> Publish CO2 concentration</label></p>
<p><label>Broker <input name="mqtt_server" value="{{.Config.MQTT.Server}}"></label></p>
<p><label>Port <input type="number" name="mqtt_port" min="0" max="65535" value="{{.Config.MQTT.Port}}"></label></p>
<p><label>User <input name="mqtt_username" value="{{.Config.MQTT.Username}}"></label></p>
<p><label>Password <input type="password" name="mqtt_password" value="{{.Config.MQTT.Password}}"></label></p>
<p><label>Failed connections before automatic restart <input type="number" name="max_failures" min="0" max="1000" value="{{.Config.MaxFailures}}"></label></p>
<p><label>Topic <input name="mqtt_topic" value="{{.Config.MQTT.Topic}}"></label></p>
<p><label>Publication interval [s] <input type="number" name="mqtt_interval" min="10" max="3600" value="{{.Config.MQTTInterval}}"></label></p>
<p><label>Message template <input name="mqtt_template" value="{{.Config.MQTT.Template}}"></label></p>
<p>The {} in the template is replaced by the measurement.</p>
<p><input type="submit" value="Save"></p>
</form>
<form method="post" action="/restart"><input type="submit" value="Restart device"></form>
</body></html>
`))
