package snowflake

// NativeBackend names the in-process implementation of the mint algorithm.
const NativeBackend = "native"

// Provider mints identifiers. Generator is a Provider, and so is whatever a
// Backend opens.
type Provider interface {
	Create() (ID, error)
}

// Settings are the process-scoped values handed to a Backend when it is
// opened. They stay fixed for the life of the Provider it returns.
type Settings struct {
	NodeID int64
	Epoch  int64
}

// Backend is an alternate, externally implemented mint path. Open doubles as
// the capability probe: an error means the backend is not usable in this
// environment and NewGenerator moves on. A Backend must guarantee uniqueness
// and monotonicity per node on its own; it need not use StandardLayout.
type Backend interface {
	Name() string
	Open(Settings) (Provider, error)
}
