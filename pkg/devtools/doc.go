// Package devtools connects fusion stores to external inspection tools.
//
// Stores built with store.WithDevtools register themselves in a
// process-wide registry under their name. The registry is the only global
// in fusion. It exists so an inspector started separately (the fusion CLI,
// a browser extension) can find stores without the application passing
// handles around.
//
// Bridge serves the registry over HTTP:
//
//	GET /stores                 list of registered store names
//	GET /stores/{name}          current snapshot as JSON
//	GET /stores/{name}/events   websocket stream of Event messages
//
// Mount it on an existing router or serve it on its own address:
//
//	bridge := devtools.NewBridge()
//	go http.ListenAndServe("localhost:7777", bridge)
package devtools
