// Package storage defines the adapter a fusion store persists through, and
// the adapters that ship with fusion.
//
// An Adapter is a string-keyed, string-valued store whose calls may block.
// The host application picks one and passes it to store.New; the store never
// builds one on its own.
//
//	adapter := storage.Noop                                   // persistence off
//	adapter := storage.NewLocal(storage.NewMemoryBackend())   // in-process, synchronous backend
//	adapter := storage.NewLocal(storage.NewDirBackend(".fusion"))
//	adapter := storage.NewS3(s3.NewFromConfig(cfg), "my-bucket", storage.WithS3Prefix("state/"))
//	adapter := storage.NewRedis(redisClient)
//	adapter := storage.NewSQL(db, storage.WithSQLDialect(storage.DialectSQLite))
//
// Wrap any adapter with Traced to get an OpenTelemetry span per call.
//
// Adapters return plain errors. Converting them into coded persistence
// errors is the store's job.
package storage
