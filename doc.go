// Package sseclient is a library for consuming SSE streams over HTTP.
//
// This library implements the client side of the SSE protocol. It keeps a
// long-lived HTTP connection to the server, transparently reconnects after
// stream failures and resumes missed events by sending the Last-Event-Id
// header on reconnect. Incoming byte stream is parsed incrementally, event
// boundaries are detected correctly even if transport fragmentation splits
// them between reads.
//
// Typical usage of this package is:
//	* Create new client object with the New constructor.
//	* Register callbacks with OnMessage or AddEventListener, optionally
//	  with OnOpen and OnError.
//	* Call Connect() to start receiving events. Client keeps the stream
//	  alive and reconnects using the server suggested retry interval.
//	* Call Close() for graceful shutdown, it cancels the in-flight request
//	  and stops reconnecting.
//
// Last seen event IDs are saved via the Store interface. Default in-memory
// store resumes streams over reconnects within a single process, persistent
// implementations (FileStore, sqlitestore, pgstore) also resume after
// application restarts.
package sseclient
