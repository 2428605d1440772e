package constants

import "time"

// Application constants
const (
	AppName = "ruling-to-text"
	// AppVersion is injected via ldflags in main.go; use cmd.GetVersionInfo()
)

// File processing constants
const (
	// Default file permissions
	DefaultFilePermission = 0644
	DefaultDirPermission  = 0755

	// Per-case cache layout under {cache_dir}/{case_id}/
	SourcePDFName       = "source.pdf"
	PagesDirName        = "pages"
	DiagnosticsFileName = "diagnostics.log"
	RenderStampName     = "render.txt"
	PageImagePattern    = "page-%04d"

	// Output
	DefaultTextFileExtension = ".txt"

	// Marker embedded in temp file names; such files are never treated as cache hits
	TempFileSuffix = ".tmp-*"
)

// Retry and timeout settings
const (
	DefaultFetchAttempts   = 3
	DefaultBackoffInitial  = time.Second
	DefaultBackoffMax      = 30 * time.Second
	DefaultFetchTimeout    = 2 * time.Minute
	DefaultCaseTimeout     = 30 * time.Minute
	DefaultOCRPageAttempts = 2 // one re-invocation
)

// Concurrency limits
const (
	DefaultConcurrency     = 2
	MaxConcurrency         = 32
	DefaultPageConcurrency = 1
	MaxPageConcurrency     = 16
)

// OCR processing constants
const (
	DefaultImageDPI      = 300
	DefaultImageFormat   = "jpeg"
	DefaultOCRLanguage   = "jpn"
	DefaultPageSeparator = "\n\n"
	PagePlaceholder      = "[page %d: OCR failed]"

	// Crop used for the court's scanned rulings (A4 at 150 DPI minus margins)
	ScanCropGeometry = "1000x1475+150+150"
)

// Source validation
const (
	PDFMagic         = "%PDF-"
	DefaultUserAgent = AppName + " (+https://github.com/nodewee/ruling-to-text)"
)

// Exit codes
const (
	ExitCodeSuccess     = 0
	ExitCodeCaseFailure = 1
	ExitCodeUsage       = 2
	ExitCodeInterrupted = 130
)
