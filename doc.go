// Package eventer provides a generic publish/subscribe registry.
//
// Listeners are registered per event, optionally for a single dispatch, and
// invoked synchronously in registration order:
//
//	registry := eventer.New[string, Greeting]()
//
//	hello := eventer.NewListener(func(g Greeting) { fmt.Println(g.Text) })
//	registry.
//		On("hello", hello).
//		Once("ready", eventer.NewSignal[Greeting](func() { fmt.Println("ready") })).
//		Emit("hello", Greeting{Text: "Hello there!"}).
//		Notify("ready").
//		RemoveListener("hello", hello)
//
// The set of listeners visited by a dispatch is fixed when it starts. Listeners
// added or removed while it runs only affect later dispatches, and once
// listeners are removed after the pass completes.
//
// Package relay bridges a Registry to a websocket peer.
package eventer
