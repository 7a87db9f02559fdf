// Package loop implements a single-threaded reactor for scripted device
// firmware: event sources (timers, bounded queues, interrupts, signals) are
// registered as contracts, callbacks are bound to contracts through
// subscriptions, and a blocking Run loop polls all sources and dispatches
// ready events one at a time.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch Loop:
// Run processes all dispatches on the calling goroutine. Callbacks never
// overlap and are never preempted mid-callback. This ensures:
// - Predictable dispatch order within a pass
// - Reproducible traces for golden-file comparison
// - Simple reasoning about callback side effects
//
// Dispatch Flow:
// 1. Each pass polls every registered contract for readiness
// 2. Ready contracts with a live subscription dispatch at most once per pass
// 3. The dispatch order rotates by one position per pass so no ready source
//    can be starved while others keep firing
// 4. Stop() lets the in-flight pass finish dispatching, then Run returns
//
// Sources external to the loop (interrupt triggers, queue producers, signal
// posters) may set readiness from any goroutine; they hand off to the loop
// thread through their own synchronization plus a coalescing wake channel.
// The subscription table and all per-subscription state are mutated only
// under the loop's lock.
//
// Callbacks receive an explicit state slice seeded at Subscribe time and may
// return a replacement slice, which the loop stores and supplies on the next
// invocation for the same subscription. State never lives in captured
// mutable closures.
package loop
