// Package config provides configuration parsing for fusion projects.
//
// The configuration is stored in fusion.json (or fusion.yaml) at the
// project root. The fusion CLI uses it to find the persisted record and
// the devtools bridge of an application.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "namespace": "shop",
//	  "persistPrefix": "persist.",
//	  "persistKeys": ["cart"],
//	  "debounce": "250ms",
//	  "storage": {
//	    "driver": "s3",
//	    "s3": {
//	      "bucket": "shop-state",
//	      "prefix": "fusion/",
//	      "region": "eu-west-1"
//	    }
//	  },
//	  "devtools": {
//	    "enabled": true,
//	    "addr": "localhost:7777"
//	  }
//	}
//
// Drivers: none (default), memory, dir (one file per namespace under
// storage.dir), s3 and sql (storage.sql.driver, dsn, table, dialect).
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := store.New(append(cfg.StoreOptions(), store.WithAdapter(adapter))...)
package config
