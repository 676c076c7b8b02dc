// Package shoprec 是面向电商商品流的推荐引擎。
//
// 链路分层：
//   - profile：从浏览/搜索/加购/心愿单/订单构建带时间衰减的偏好画像
//   - recall：内容、协同、热门、新品四路召回 + 随机加权兜底
//   - fusion：按活跃度分层规划配额，并发执行召回并按优先级融合
//   - filter / rerank：库存与已看过滤、CEL 规则加权、Top-N 截断
//   - cache：双 TTL 进程内缓存，配合 track 的事件驱动失效
//   - engine / api：编排与 HTTP 接口
//
// 快速上手见 cmd/shoprecd。
package shoprec
