package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"

	"github.com/miretskiy/endurer/simulator"
)

const (
	defaultAddr         = ":8080"
	defaultTick         = 500 * time.Millisecond
	defaultStepsPerTick = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Client message types
type ClientMessage struct {
	Type      string               `json:"type"`
	Config    *simulator.SimConfig `json:"config,omitempty"`
	WriteSets [][]uint64           `json:"writeSets,omitempty"` // Inline traces; when absent config paths are loaded
}

// Server message types
type ServerMessage struct {
	Type     string                 `json:"type"`
	Running  *bool                  `json:"running,omitempty"`
	Config   *simulator.SimConfig   `json:"config,omitempty"`
	Clock    *simulator.Clock       `json:"clock,omitempty"`
	Progress *simulator.EpochSample `json:"progress,omitempty"`
	Stats    *simulator.Stats       `json:"stats,omitempty"` // Set once the run wore out
	State    map[string]interface{} `json:"state,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// server holds what the handlers share
type server struct {
	tick         time.Duration
	stepsPerTick uint64
	registry     *prometheus.Registry
	metrics      *promMetrics
	sessions     atomic.Int64
	startedAt    time.Time
	quit         func()
}

func newServer(tick time.Duration, stepsPerTick uint64) *server {
	reg := prometheus.NewRegistry()
	return &server{
		tick:         tick,
		stepsPerTick: stepsPerTick,
		registry:     reg,
		metrics:      newPromMetrics(reg),
		startedAt:    time.Now(),
		quit: func() {
			logrus.Info("Server stopped")
			os.Exit(0)
		},
	}
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.serveHome).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/api/resource", s.listResources)
	r.HandleFunc("/api/profile", s.collectProfile)
	r.HandleFunc("/quitquitquit", s.quitHandler)
	return r
}

// uiUpdateLoop periodically steps the simulation and sends updates to the client.
// This runs in its own goroutine and controls UI pacing.
func (s *server) uiUpdateLoop(conn *safeConn, state *simState) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-state.stopCh:
			state.log.Debug("UI update loop stopping")
			return

		case <-ticker.C:
			if !state.isRunning() {
				continue
			}
			clock, progress, done := state.step(s.stepsPerTick)

			statsMsg := ServerMessage{
				Type:     "stats",
				Clock:    &clock,
				Progress: &progress,
			}
			if done {
				statsMsg.Stats = state.stats()
			}
			if err := conn.WriteJSON(statsMsg); err != nil {
				state.log.Errorf("Error sending stats: %v", err)
				return
			}

			stateMsg := ServerMessage{
				Type:  "state",
				State: state.state(),
			}
			if err := conn.WriteJSON(stateMsg); err != nil {
				state.log.Errorf("Error sending state: %v", err)
				return
			}

			if done {
				state.log.Infof("Run worn out after %d iterations: %d remaps", clock.Iterations, clock.Remaps)
				if err := sendStatus(conn, state); err != nil {
					return
				}
			}
		}
	}
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

func sendStatus(conn *safeConn, state *simState) error {
	running := state.isRunning()
	cfg := state.getConfig()
	return conn.WriteJSON(ServerMessage{
		Type:    "status",
		Running: &running,
		Config:  &cfg,
	})
}

func sendError(conn *safeConn, err error) error {
	return conn.WriteJSON(ServerMessage{Type: "error", Error: err.Error()})
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("Error upgrading connection: %v", err)
		return
	}
	defer ws.Close()

	conn := &safeConn{Conn: ws}
	log := logrus.WithField("remote", r.RemoteAddr)
	log.Info("Client connected")

	s.metrics.activeSessions.Set(float64(s.sessions.Add(1)))
	defer func() {
		s.metrics.activeSessions.Set(float64(s.sessions.Add(-1)))
	}()

	state := newSimState(s.metrics, log)
	defer state.stop()

	if err := sendStatus(conn, state); err != nil {
		log.Errorf("Error sending status: %v", err)
		return
	}

	go s.uiUpdateLoop(conn, state)

	// Handle messages from client
	for {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("Error reading message: %v", err)
			}
			break
		}

		log.Debugf("Received command: %s", msg.Type)

		var cmdErr error
		switch msg.Type {
		case "start":
			cmdErr = state.start()
		case "pause":
			state.pause()
		case "reset":
			cmdErr = state.reset()
		case "config_update":
			if msg.Config == nil {
				cmdErr = simulator.ErrArgument("config_update without config")
				break
			}
			cmdErr = state.updateConfig(*msg.Config, msg.WriteSets)
			if cmdErr == nil {
				log.Infof("Config updated: %s mode, %d node(s)", msg.Config.Mode, msg.Config.NumNodes())
			}
		default:
			cmdErr = simulator.ErrArgument(fmt.Sprintf("unknown command %q", msg.Type))
		}

		if cmdErr != nil {
			log.Warnf("Command %s failed: %v", msg.Type, cmdErr)
			err = sendError(conn, cmdErr)
		} else {
			err = sendStatus(conn, state)
		}
		if err != nil {
			log.Errorf("Error sending reply: %v", err)
			break
		}
	}

	log.Info("Client disconnected")
}

type homeRsp struct {
	Service        string  `json:"service"`
	ActiveSessions int64   `json:"activeSessions"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	WebSocket      string  `json:"websocket"`
	Metrics        string  `json:"metrics"`
}

func (s *server) serveHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, homeRsp{
		Service:        "endurer",
		ActiveSessions: s.sessions.Load(),
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		WebSocket:      "/ws",
		Metrics:        "/metrics",
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *server) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

// collectProfile samples the CPU for one second
func (s *server) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, prof)
}

func (s *server) quitHandler(w http.ResponseWriter, _ *http.Request) {
	logrus.Info("Shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.quit()
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		logrus.Errorf("Error writing response: %v", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Fatalf("Error loading .env: %v", err)
	}
	if level, ok := os.LookupEnv("ENDURER_LOG_LEVEL"); ok {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", level)
		}
		logrus.SetLevel(lvl)
	}

	addr := defaultAddr
	if v := os.Getenv("ENDURER_ADDR"); v != "" {
		addr = v
	}

	s := newServer(defaultTick, defaultStepsPerTick)

	logrus.Infof("Server starting on http://localhost%s", addr)
	logrus.Infof("WebSocket endpoint: ws://localhost%s/ws", addr)
	logrus.Infof("Shutdown endpoint: http://localhost%s/quitquitquit", addr)
	logrus.Fatal(http.ListenAndServe(addr, s.router()))
}
