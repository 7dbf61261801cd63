// Package config loads and saves the autoanswer settings file.
//
// Settings are grouped into sections (answering, cache, browser, logging)
// registered with a Manager. The file is JSON, or YAML when the path ends
// in .yaml or .yml.
package config

// Config is the loaded set of sections.
type Config struct {
	Manager   *Manager
	Answering *AnsweringSection
	Cache     *CacheSection
	Browser   *BrowserSection
	Logging   *LoggingSection
}

// Default returns every section at its defaults, backed by store.
func Default(store Store) (*Config, error) {
	c := &Config{
		Manager:   NewManager(store),
		Answering: NewAnsweringSection(),
		Cache:     NewCacheSection(),
		Browser:   NewBrowserSection(),
		Logging:   NewLoggingSection(),
	}
	for _, section := range []Section{c.Answering, c.Cache, c.Browser, c.Logging} {
		if err := c.Manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load reads path (DefaultPath when empty) over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}
	c, err := Default(store)
	if err != nil {
		return nil, err
	}
	if err := c.Manager.LoadAll(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save validates and writes every section.
func (c *Config) Save() error {
	return c.Manager.SaveAll()
}
