// Package xmetrics 提供锁操作的统一观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr 接口，默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xlock",
//		Operation: "acquire",
//		Attrs:     []xmetrics.Attr{xmetrics.String("xlock.key", key)},
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xlock.operation.total：操作次数（counter）
//   - xlock.operation.duration：操作耗时，单位秒（histogram）
//
// 统一属性：component / operation / status。
// status 为空时根据错误推导为 ok 或 error，调用方可以传入更细的状态，
// 例如锁竞争失败记为 contention。
package xmetrics
