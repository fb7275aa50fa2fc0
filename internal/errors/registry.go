package errors

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[Code]Template{
	ProviderMissing: {
		Category: CategoryUsage,
		Message:  "No store provided",
		Detail:   "A state accessor was used in a component with no ancestor that provided a store. Call store.Provide on a parent owner before rendering the component.",
		DocURL:   "https://vango.dev/docs/fusion/errors#provider-missing",
	},
	KeyAlreadyInitializing: {
		Category: CategoryUsage,
		Message:  "Key is already being initialized with a different value",
		Detail:   "Two declarations of the same key with different initial values overlapped. The store was left unchanged. Give both declarations the same default or declare the key once.",
		DocURL:   "https://vango.dev/docs/fusion/errors#key-already-initializing",
	},
	KeyMissingNoInitial: {
		Category: CategoryUsage,
		Message:  "Set on undeclared key",
		Detail:   "The key was never declared and no initial value was supplied. Declare it first or use SetWithInitial.",
		DocURL:   "https://vango.dev/docs/fusion/errors#key-missing-no-initial",
	},
	PersistenceReadError: {
		Category: CategoryPersistence,
		Message:  "Failed to read persisted state",
		Detail:   "The storage adapter failed or returned data that could not be decoded. Affected keys keep their declared defaults.",
		DocURL:   "https://vango.dev/docs/fusion/errors#persistence-read-error",
	},
	PersistenceWriteError: {
		Category: CategoryPersistence,
		Message:  "Failed to write persisted state",
		Detail:   "The storage adapter rejected a write. In-memory state is unaffected; the next accepted write retries with a fresh snapshot.",
		DocURL:   "https://vango.dev/docs/fusion/errors#persistence-write-error",
	},
	StorageAdapterMissing: {
		Category: CategoryConfig,
		Message:  "Persistence enabled without a storage adapter",
		Detail:   "The store was configured to persist keys but no adapter was supplied.",
		DocURL:   "https://vango.dev/docs/fusion/errors#storage-adapter-missing",
	},
	ConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "Neither fusion.json nor fusion.yaml exists in the directory.",
		DocURL:   "https://vango.dev/docs/fusion/config",
	},
	ConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   "https://vango.dev/docs/fusion/config",
	},
}

// Lookup returns the template registered for code.
func Lookup(code Code) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code.
func Codes() []Code {
	return []Code{
		ProviderMissing,
		KeyAlreadyInitializing,
		KeyMissingNoInitial,
		PersistenceReadError,
		PersistenceWriteError,
		StorageAdapterMissing,
		ConfigNotFound,
		ConfigInvalid,
	}
}
