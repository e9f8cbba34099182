package snowflake

// DefaultGenerator is used by Next. Replace it with SetNodeID at startup.
var DefaultGenerator = NewGenerator(0)

// SetNodeID replaces DefaultGenerator with a generator for node.
// Call this once at startup before using Next.
func SetNodeID(node int64, opts ...Option) {
	DefaultGenerator = NewGenerator(node, opts...)
}

// Next mints an ID with DefaultGenerator.
func Next() (ID, error) {
	return DefaultGenerator.Create()
}
