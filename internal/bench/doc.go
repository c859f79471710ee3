// Package bench はTaskのラウンドトリップ計測機能を提供する。
//
// EngineはTask（またはworker.Group）に対してExecute→Finishを繰り返し、
// 各結果を呼び出し側で計算した期待値と照合しながら、レイテンシと
// スループットをmetricsに記録する。進捗はeventsに発行する。
//
// # 機能
//
// - 単一TaskとGroupの両方での計測
// - 結果の検証（不一致はmismatchイベントとして発行）
// - 定義済みプリセット
// - 実行結果のレポート生成
//
// # プリセット
//
// - quick: 数千回のラウンドトリップによる動作確認
// - blocking: 条件変数モードでのchecksum計測
// - spin: OSスレッド固定のスピンモードでのchecksum計測
// - fanout: CPU数のTaskへの分割実行
// - stress: 全CPUでのスピンと大きなペイロード
//
// # ワークロード
//
// - double: 整数を2倍にする
// - checksum: 生成したペイロードのCRC-32
// - noop: 何もしない（受け渡しのオーバーヘッドのみ）
//
// # 使用例
//
//	config := bench.SpinPreset()
//	engine := bench.New(config)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package bench
