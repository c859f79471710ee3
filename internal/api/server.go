package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"frametask/internal/bench"
	"frametask/internal/events"
	"frametask/internal/logger"
	"frametask/internal/metrics"
	"frametask/internal/task"

	"golang.org/x/net/websocket"
)

// Server はAPIサーバー
type Server struct {
	addr string
	bus  *events.Bus

	mu      sync.RWMutex
	running bool
	engine  *bench.Engine
	config  bench.Config
	cancel  context.CancelFunc
	last    *bench.Result
	lastErr error

	watchMu  sync.Mutex
	watchers map[*websocket.Conn]struct{}

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	return &Server{
		addr:     addr,
		bus:      events.NewBus(),
		watchers: make(map[*websocket.Conn]struct{}),
	}
}

// Bus はサーバーのイベントバスを返す
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/run/stop", s.handleRunStop)

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.serveStream))

	return mux
}

// Start はサーバーを開始する。ctxがキャンセルされるまで戻らない
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// バックグラウンドでイベントとメトリクスを配信
	go s.relayEvents(ctx)
	go s.tickMetrics(ctx)

	logger.Info("", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		s.stopRun()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.bus.Close()
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running    bool          `json:"running"`
	Name       string        `json:"name,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Workload   string        `json:"workload,omitempty"`
	Workers    int           `json:"workers,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	LastResult *bench.Result `json:"last_result,omitempty"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running:    s.running,
		LastResult: s.last,
	}
	if s.config.Name != "" {
		resp.Name = s.config.Name
		resp.Mode = s.config.Mode.String()
		resp.Workload = s.config.Workload
		resp.Workers = s.config.Workers
	}
	if s.lastErr != nil {
		resp.LastError = s.lastErr.Error()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respond(w, http.StatusOK, s.status())
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	Completed    uint64  `json:"completed"`
	Rejected     uint64  `json:"rejected"`
	Mismatched   uint64  `json:"mismatched"`
	Throughput   float64 `json:"throughput"`
	AvgLatencyUs float64 `json:"avg_latency_us"`
	P99LatencyUs float64 `json:"p99_latency_us"`
	MismatchRate float64 `json:"mismatch_rate"`
}

func newMetricsResponse(snapshot *metrics.Snapshot) MetricsResponse {
	if snapshot == nil {
		return MetricsResponse{}
	}
	return MetricsResponse{
		Completed:    snapshot.Completed,
		Rejected:     snapshot.Rejected,
		Mismatched:   snapshot.Mismatched,
		Throughput:   snapshot.OverallThroughput,
		AvgLatencyUs: float64(snapshot.AverageLatency) / float64(time.Microsecond),
		P99LatencyUs: float64(snapshot.P99Latency) / float64(time.Microsecond),
		MismatchRate: snapshot.MismatchRate,
	}
}

func (s *Server) metrics() MetricsResponse {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()

	if engine == nil {
		return MetricsResponse{}
	}
	return newMetricsResponse(engine.Metrics())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respond(w, http.StatusOK, s.metrics())
}

// RunRequest は計測開始リクエスト
type RunRequest struct {
	Preset     string `json:"preset"`
	Mode       string `json:"mode,omitempty"`
	Iterations *int   `json:"iterations,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Workers    *int   `json:"workers,omitempty"`
	Workload   string `json:"workload,omitempty"`
}

// ToConfig はリクエストをbench.Configに変換する
func (req RunRequest) ToConfig() (bench.Config, error) {
	// プリセット取得
	config, ok := bench.GetPreset(req.Preset)
	if !ok {
		config = bench.QuickPreset()
	}

	// オーバーライド
	if req.Mode != "" {
		mode, ok := task.ParseMode(strings.ToLower(req.Mode))
		if !ok {
			return config, errors.New("unknown mode: " + req.Mode)
		}
		config.Mode = mode
	}
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil {
			return config, err
		}
		config.Duration = d
		if req.Iterations == nil {
			config.Iterations = 0
		}
	}
	if req.Iterations != nil {
		config.Iterations = *req.Iterations
	}
	if req.Workers != nil {
		config.Workers = *req.Workers
	}
	if req.Workload != "" {
		config.Workload = req.Workload
	}

	return config, config.Validate()
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	config, err := req.ToConfig()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Benchmark already running", http.StatusConflict)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	engine := bench.New(config)
	engine.SetEventBus(s.bus)

	s.config = config
	s.engine = engine
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		defer cancel()
		result, err := engine.Run(ctx)

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.last = result
		s.lastErr = err
		s.mu.Unlock()

		if err != nil {
			logger.Error("", "Benchmark failed: %v", err)
		} else {
			logger.Info("", "Benchmark completed: %d round-trips", result.Completed)
		}
	}()

	respond(w, http.StatusAccepted, map[string]string{"status": "started", "name": config.Name})
}

// stopRun は実行中の計測をキャンセルする
func (s *Server) stopRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *Server) handleRunStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.stopRun() {
		http.Error(w, "No benchmark running", http.StatusBadRequest)
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "stop requested"})
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
	Workload    string `json:"workload"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var presets []PresetInfo
	for _, name := range bench.ListPresets() {
		config, _ := bench.GetPreset(name)
		presets = append(presets, PresetInfo{
			Name:        name,
			Description: config.Description,
			Mode:        config.Mode.String(),
			Workload:    config.Workload,
		})
	}

	respond(w, http.StatusOK, presets)
}

// StreamMessage は/wsで配信するメッセージ
type StreamMessage struct {
	Type    string           `json:"type"` // "event" または "status"
	Event   *events.Event    `json:"event,omitempty"`
	Status  *StatusResponse  `json:"status,omitempty"`
	Metrics *MetricsResponse `json:"metrics,omitempty"`
}

// serveStream は接続をwatcherとして登録し、切断まで保持する
// クライアントからのフレームは読み捨てる
func (s *Server) serveStream(ws *websocket.Conn) {
	s.watchMu.Lock()
	s.watchers[ws] = struct{}{}
	s.watchMu.Unlock()

	defer s.dropWatcher(ws)

	var discard []byte
	for {
		if err := websocket.Message.Receive(ws, &discard); err != nil {
			return
		}
	}
}

func (s *Server) dropWatcher(ws *websocket.Conn) {
	s.watchMu.Lock()
	_, ok := s.watchers[ws]
	delete(s.watchers, ws)
	s.watchMu.Unlock()

	if ok {
		_ = ws.Close()
	}
}

// WatcherCount は接続中の/wsクライアント数を返す
func (s *Server) WatcherCount() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.watchers)
}

// publish はメッセージを全watcherへ送る。送信に失敗した接続は切断する
func (s *Server) publish(msg StreamMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logger.Error("", "Failed to encode stream message: %v", err)
		return
	}

	s.watchMu.Lock()
	targets := make([]*websocket.Conn, 0, len(s.watchers))
	for ws := range s.watchers {
		targets = append(targets, ws)
	}
	s.watchMu.Unlock()

	for _, ws := range targets {
		if err := websocket.Message.Send(ws, string(frame)); err != nil {
			logger.Debug("", "Dropping stream watcher %s: %v", ws.Request().RemoteAddr, err)
			s.dropWatcher(ws)
		}
	}
}

// relayEvents はイベントバスのイベントを/wsへ中継する
func (s *Server) relayEvents(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.publish(StreamMessage{Type: "event", Event: &ev})
		}
	}
}

// tickMetrics は実行中の計測の状態とメトリクスを1秒ごとに配信する
func (s *Server) tickMetrics(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.status()
			if !status.Running {
				continue
			}
			status.LastResult = nil
			m := s.metrics()
			s.publish(StreamMessage{Type: "status", Status: &status, Metrics: &m})
		}
	}
}

// respond はdataをJSONで返す
func respond(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
