package domain

const (
	// ConfigFileName is the name of the optional project configuration file.
	ConfigFileName = "trowel.yaml"

	// SpriteSheetName is the packed sprite image written to the sprite destination.
	SpriteSheetName = "spritesheet.png"

	// RetinaSpriteSheetName is the packed double-density sprite image.
	RetinaSpriteSheetName = "spritesheet@2x.png"

	// SpriteFragmentName is the SCSS fragment written to the sprite fragment directory.
	SpriteFragmentName = "_spritesmith.scss"

	// DirPerm is the default permission for directories (rwxr-xr-x).
	DirPerm = 0o755

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)
