package utils

// DownloadEntry is one item of a batch manifest.
type DownloadEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
}
