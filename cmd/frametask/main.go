// Package main is the entry point for frametask.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"frametask/internal/api"
	"frametask/internal/bench"
	"frametask/internal/config"
	"frametask/internal/logger"
	"frametask/internal/task"

	"go.uber.org/automaxprocs/maxprocs"
)

var (
	version = "dev"
)

// options はコマンドラインフラグの値
type options struct {
	configFile   string
	presetName   string
	mode         string
	iterations   int
	duration     time.Duration
	workers      int
	workload     string
	payloadSize  int
	lockOSThread bool
	cpu          int
	overlap      string

	// 明示的に指定されたフラグ
	set map[string]bool
}

func main() {
	var opts options

	// フラグ定義
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.StringVar(&opts.presetName, "preset", "", "プリセット名 ("+strings.Join(bench.ListPresets(), ", ")+")")
	flag.StringVar(&opts.mode, "mode", "", "同期方式 (blocking, spin)")
	flag.IntVar(&opts.iterations, "iterations", 0, "ラウンド数 (0でdurationまで)")
	flag.DurationVar(&opts.duration, "duration", 0, "実行時間 (例: 10s, 1m)")
	flag.IntVar(&opts.workers, "workers", 1, "Task数 (0でCPU数)")
	flag.StringVar(&opts.workload, "workload", "", "ワークロード ("+strings.Join(bench.ListWorkloads(), ", ")+")")
	flag.IntVar(&opts.payloadSize, "payload-size", 0, "checksumのペイロードサイズ (バイト)")
	flag.BoolVar(&opts.lockOSThread, "lock-os-thread", false, "ワーカーをOSスレッドに固定")
	flag.IntVar(&opts.cpu, "cpu", -1, "ワーカーを固定するCPU (linuxのみ、-1で固定しない)")
	flag.StringVar(&opts.overlap, "overlap", "", "重複したExecuteの扱い (reject, panic)")
	var (
		logLevel    = flag.String("log-level", "info", "ログレベル (debug, info, warn, error)")
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "APIサーバーモードで起動")
		serverAddr  = flag.String("addr", ":8080", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `frametask - Single-slot worker round-trip benchmark

Usage:
  frametask [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # プリセットを実行
  frametask --preset quick

  # 設定ファイルから実行
  frametask --config run.yaml

  # フラグでカスタマイズ
  frametask --preset spin --duration 30s --cpu 2

  # CPU数のTaskに分割して実行
  frametask --mode blocking --workers 0 --workload checksum

  # プリセット一覧を表示
  frametask --list-presets

  # APIサーバーモードで起動
  frametask --server --addr :3000
`)
	}

	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	// バージョン表示
	if *showVersion {
		fmt.Printf("frametask version %s\n", version)
		return
	}

	level, ok := logger.ParseLevel(*logLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "不明なログレベル: %s\n", *logLevel)
		os.Exit(2)
	}
	logger.SetLevel(level)

	// スピンするワーカーには実際のCPUが必要なため、コンテナのCPU制限に合わせる
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug("", format, args...)
	}))
	defer undo()
	if err != nil {
		logger.Warn("", "GOMAXPROCSの設定に失敗: %v", err)
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	// APIサーバーモード
	if *serverMode {
		if err := runServer(*serverAddr); err != nil {
			logger.Error("", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// 計測設定の決定
	benchConfig, err := buildBenchConfig(opts)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	// 計測実行
	if err := runBench(benchConfig); err != nil {
		logger.Error("", "計測エラー: %v", err)
		os.Exit(1)
	}
}

// buildBenchConfig は計測設定を構築する
func buildBenchConfig(opts options) (bench.Config, error) {
	var cfg bench.Config

	// 1. 設定ファイルから読み込み
	if opts.configFile != "" {
		fileConfig, err := config.LoadFile(opts.configFile)
		if err != nil {
			return cfg, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToBenchConfig()
		if err != nil {
			return cfg, fmt.Errorf("設定変換エラー: %w", err)
		}
	} else if opts.presetName != "" {
		// 2. プリセットから読み込み
		preset, ok := bench.GetPreset(opts.presetName)
		if !ok {
			return cfg, fmt.Errorf("不明なプリセット: %s (利用可能: %v)", opts.presetName, bench.ListPresets())
		}
		cfg = preset
	} else {
		// 3. デフォルト（quickプリセット）
		cfg = bench.QuickPreset()
	}

	// フラグが明示的に指定された場合のみオーバーライド
	if opts.set["mode"] {
		mode, ok := task.ParseMode(strings.ToLower(opts.mode))
		if !ok {
			return cfg, fmt.Errorf("不明な同期方式: %s", opts.mode)
		}
		cfg.Mode = mode
	}
	if opts.set["duration"] {
		cfg.Duration = opts.duration
		if !opts.set["iterations"] {
			cfg.Iterations = 0
		}
	}
	if opts.set["iterations"] {
		cfg.Iterations = opts.iterations
	}
	if opts.set["workers"] {
		cfg.Workers = opts.workers
	}
	if opts.set["workload"] {
		cfg.Workload = opts.workload
	}
	if opts.set["payload-size"] {
		cfg.PayloadSize = opts.payloadSize
	}
	if opts.set["lock-os-thread"] {
		cfg.LockOSThread = opts.lockOSThread
	}
	if opts.set["cpu"] {
		cfg.CPU = opts.cpu
	}
	if opts.set["overlap"] {
		policy, ok := task.ParseOverlapPolicy(strings.ToLower(opts.overlap))
		if !ok {
			return cfg, fmt.Errorf("不明な重複ポリシー: %s", opts.overlap)
		}
		cfg.Overlap = policy
	}

	return cfg, cfg.Validate()
}

// runBench は計測を実行する
func runBench(cfg bench.Config) error {
	fmt.Println("frametask - Single-slot worker round-trip benchmark")
	fmt.Println("===================================================")
	fmt.Printf("Run: %s\n", cfg.Name)
	fmt.Printf("Mode: %s, Workload: %s\n", cfg.Mode, cfg.Workload)
	fmt.Printf("Iterations: %d, Duration: %v, Workers: %d\n", cfg.Iterations, cfg.Duration, cfg.Workers)
	fmt.Printf("Lock OS thread: %v, CPU: %d\n", cfg.LockOSThread, cfg.CPU)
	fmt.Println("===================================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、計測を終了中...")
		cancel()
	}()

	// 計測実行
	engine := bench.New(cfg)
	result, err := engine.Run(ctx)
	if result != nil {
		// 中断された場合も途中結果を出力する
		fmt.Println(result.Report())
	}
	return err
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセット:")
	fmt.Println()

	for _, name := range bench.ListPresets() {
		p, _ := bench.GetPreset(name)
		fmt.Printf("  %-10s %-9s %s\n", name, p.Mode, p.Description)
	}

	fmt.Println()
	fmt.Println("使用例: frametask --preset quick")
}

// runServer はAPIサーバーを起動する
func runServer(addr string) error {
	fmt.Println("frametask - API Server")
	fmt.Println("======================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	server := api.NewServer(addr)
	return server.Start(ctx)
}
