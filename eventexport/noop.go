package eventexport

// NoopExporter is the default exporter when no Redis URL is configured.
type NoopExporter struct{}

func (NoopExporter) Publish(string) error { return nil }
func (NoopExporter) Close() error         { return nil }
