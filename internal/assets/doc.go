// Package assets provides the CSS styles and HTML templates invoices are
// rendered with.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in styles and template sets (go:embed)
//	    ├── FilesystemLoader  - custom directory on disk
//	    └── AssetResolver     - custom first, embedded fallback
//
// AssetResolver is what the exporter uses. A custom directory only needs
// the assets it overrides; anything missing falls back to the embedded
// copy.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css
//	└── templates/
//	    └── {name}/
//	        └── invoice.html
//
// # Security
//
// Asset names may not contain separators or dots. FilesystemLoader resolves
// symlinks and rejects paths that leave basePath.
package assets
