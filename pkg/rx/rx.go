// Package rx implements the subscription lifecycle core of a reactive
// stream: disposables, subscriptions, observers, subscribers and multicast
// subjects. It is scheduler-agnostic: nothing in this package starts a
// goroutine or blocks; every call is synchronous and returns after its side
// effects complete. Concurrency safety comes from a per-instance mutex on
// each subject and subscription, so producers and disposers may race from
// different goroutines.
package rx

// Observable is anything that can be subscribed to: a producer of a value
// sequence terminated by an error or by completion.
type Observable[T any] interface {
	Subscribe(Observer[T]) *Subscription
}
