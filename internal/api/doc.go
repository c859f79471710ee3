// Package api は計測の実行と監視のためのHTTP/WebSocketサーバーを提供する。
//
// # エンドポイント
//
//   - GET  /api/status   実行状態と直近の結果
//   - GET  /api/metrics  実行中（または直近）の計測のメトリクス
//   - GET  /api/presets  利用可能なプリセット
//   - POST /api/run      プリセットと上書き設定で計測を開始
//   - POST /api/run/stop 実行中の計測をキャンセル
//   - /ws                イベントと1秒ごとのメトリクスの配信
package api
