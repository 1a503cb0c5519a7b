package config

// File represents the structure of the trowel.yaml configuration file.
type File struct {
	Paths       PathsDTO    `yaml:"paths"`
	Server      *ServerDTO  `yaml:"server"`
	Markup      *CommandDTO `yaml:"markup"`
	Style       *CommandDTO `yaml:"style"`
	Policy      string      `yaml:"policy"`
	Parallelism int         `yaml:"parallelism"`
	Debounce    string      `yaml:"debounce"`
}

// PathsDTO holds the roots and the per-category route overrides keyed by category name.
type PathsDTO struct {
	Dist           string              `yaml:"dist"`
	Source         string              `yaml:"source"`
	SpriteFragment string              `yaml:"sprite_fragment"`
	Routes         map[string]RouteDTO `yaml:",inline"`
}

// RouteDTO overrides fields of one category route. Empty fields keep the default.
type RouteDTO struct {
	Source  string   `yaml:"source"`
	Dest    string   `yaml:"dest"`
	Pattern string   `yaml:"pattern"`
	Watch   []string `yaml:"watch"`
}

// ServerDTO configures the dev server.
type ServerDTO struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CommandDTO configures an external compiler.
type CommandDTO struct {
	Command  []string `yaml:"command"`
	Stdin    *bool    `yaml:"stdin"`
	DevArgs  []string `yaml:"dev_args"`
	ProdArgs []string `yaml:"prod_args"`
	Post     []string `yaml:"post"`
}
