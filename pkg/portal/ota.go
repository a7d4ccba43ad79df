package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

type otaPhase int

const (
	otaIdle otaPhase = iota
	otaStarted
	otaDone
	otaFailed
)

type otaState struct {
	phase   otaPhase
	percent int
}

// Updater receives a firmware image over PUT /update and replaces target
// with it. Progress is rendered by Handle, which the main loop calls; the
// upload itself runs on the HTTP goroutine.
type Updater struct {
	target  string
	display display.Display
	texts   texts.Texts
	log     *slog.Logger

	mu    sync.Mutex
	state otaState
	shown otaState
}

func NewUpdater(target string, d display.Display, tx texts.Texts, log *slog.Logger) *Updater {
	return &Updater{
		target:  target,
		display: d,
		texts:   tx,
		log:     log.With(slog.String("component", "ota")),
		shown:   otaState{percent: -1},
	}
}

func (u *Updater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	if u.state.phase == otaStarted {
		u.mu.Unlock()
		http.Error(w, "update in progress", http.StatusConflict)
		return
	}
	u.state = otaState{phase: otaStarted}
	u.mu.Unlock()

	u.log.Info("update started", "bytes", r.ContentLength)
	if err := u.receive(r.Body, r.ContentLength); err != nil {
		u.log.Error("update failed", "error", err)
		u.set(otaState{phase: otaFailed})
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	u.log.Info("update stored", "target", u.target)
	u.set(otaState{phase: otaDone, percent: 100})
	_, _ = fmt.Fprintln(w, "ok")
}

func (u *Updater) receive(body io.Reader, total int64) error {
	tmp := u.target + ".new"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	pw := &progressWriter{u: u, total: total}
	_, err = io.Copy(io.MultiWriter(f, pw), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write image: %w", err)
	}
	if total > 0 && pw.n != total {
		_ = os.Remove(tmp)
		return fmt.Errorf("short image: %d of %d bytes", pw.n, total)
	}
	if err := os.Rename(tmp, u.target); err != nil {
		return fmt.Errorf("install image: %w", err)
	}
	return nil
}

func (u *Updater) set(s otaState) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
}

type progressWriter struct {
	u     *Updater
	total int64
	n     int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.n += int64(len(b))
	if p.total > 0 {
		pct := int(p.n * 100 / p.total)
		p.u.mu.Lock()
		p.u.state.percent = pct
		p.u.mu.Unlock()
	}
	return len(b), nil
}

// Busy reports whether an image is being received.
func (u *Updater) Busy() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.phase == otaStarted
}

// Handle renders the update state when it changed. A finished update
// returns system.ErrRestart so the new image is started.
func (u *Updater) Handle(ctx context.Context) error {
	u.mu.Lock()
	s := u.state
	if s.phase == otaFailed || s.phase == otaDone {
		u.state = otaState{phase: otaIdle}
	}
	u.mu.Unlock()

	if s == u.shown {
		return nil
	}
	prev := u.shown
	u.shown = s

	switch s.phase {
	case otaStarted:
		if prev.phase != otaStarted {
			_ = u.display.Text(u.texts.OTA, display.Blue, display.Black)
			return nil
		}
		_ = u.display.Text(strconv.Itoa(s.percent)+"%", display.White, display.Black)
	case otaDone:
		_ = u.display.Text(u.texts.OTADone, display.Green, display.Black)
		return system.ErrRestart
	case otaFailed:
		_ = u.display.Text(u.texts.OTAFailed, display.Red, display.Black)
	}
	return nil
}
