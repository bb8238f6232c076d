package signature

import (
	"sort"
	"strings"
)

// Family groups formats that share an outer container signature
type Family string

const (
	// FamilyNone is used by formats identified by their own signature
	FamilyNone Family = ""
	// FamilyZip covers ZIP and every format stored as a ZIP container
	FamilyZip Family = "zip"
	// FamilyText covers formats recognised by content sniffing
	FamilyText Family = "text"
)

// Format describes one detectable file format
type Format struct {
	// ID is the format identifier reported in records, e.g. "PNG"
	ID string

	// Ext is the canonical extension including the dot
	Ext string

	// Aliases are other extensions accepted as correct for this format
	Aliases []string

	Family Family

	// Description and Viewer are shown in summaries
	Description string
	Viewer      string
}

// IsZero reports whether f is the zero Format
func (f Format) IsZero() bool {
	return f.ID == ""
}

// Format identifiers
const (
	JPEG   = "JPEG"
	PNG    = "PNG"
	GIF    = "GIF"
	BMP    = "BMP"
	TIFF   = "TIFF"
	PSD    = "PSD"
	WEBP   = "WEBP"
	HEIC   = "HEIC"
	ICO    = "ICO"
	PDF    = "PDF"
	RTF    = "RTF"
	DOCX   = "DOCX"
	XLSX   = "XLSX"
	PPTX   = "PPTX"
	ODT    = "ODT"
	ODS    = "ODS"
	ODP    = "ODP"
	EPUB   = "EPUB"
	MP3    = "MP3"
	FLAC   = "FLAC"
	OGG    = "OGG"
	OPUS   = "OPUS"
	WAV    = "WAV"
	M4A    = "M4A"
	MP4    = "MP4"
	MOV    = "MOV"
	MKV    = "MKV"
	WEBM   = "WEBM"
	AVI    = "AVI"
	ZIP    = "ZIP"
	SEVENZ = "7Z"
	GZIP   = "GZIP"
	BZIP2  = "BZIP2"
	XZ     = "XZ"
	RAR    = "RAR"
	JSON   = "JSON"
	XML    = "XML"
	HTML   = "HTML"
	TXT    = "TXT"
	SQLITE = "SQLITE"
	ELF    = "ELF"
	EXE    = "EXE"
	JAR    = "JAR"
	APK    = "APK"
	WOFF   = "WOFF"
	WOFF2  = "WOFF2"
	TTF    = "TTF"
	OTF    = "OTF"
)

var catalog = []Format{
	{ID: JPEG, Ext: ".jpg", Aliases: []string{".jpeg", ".jpe", ".jfif"}, Description: "JPEG image (compressed photo)", Viewer: "IrfanView / XnView MP"},
	{ID: PNG, Ext: ".png", Description: "PNG image (lossless, transparency)", Viewer: "IrfanView / XnView MP"},
	{ID: GIF, Ext: ".gif", Description: "GIF image (palette, may be animated)", Viewer: "XnView MP"},
	{ID: BMP, Ext: ".bmp", Aliases: []string{".dib"}, Description: "BMP image (uncompressed bitmap)", Viewer: "IrfanView / XnView MP"},
	{ID: TIFF, Ext: ".tiff", Aliases: []string{".tif"}, Description: "TIFF image (multi-page)", Viewer: "IrfanView / XnView MP"},
	{ID: PSD, Ext: ".psd", Description: "Adobe Photoshop document", Viewer: "Photopea / GIMP"},
	{ID: WEBP, Ext: ".webp", Description: "WebP image", Viewer: "IrfanView / web browser"},
	{ID: HEIC, Ext: ".heic", Aliases: []string{".heif"}, Description: "HEIC/HEIF image (high efficiency)", Viewer: "CopyTrans HEIC / XnView MP"},
	{ID: ICO, Ext: ".ico", Description: "Icon", Viewer: "IrfanView / XnView MP"},

	{ID: PDF, Ext: ".pdf", Description: "PDF document", Viewer: "Adobe Reader / SumatraPDF"},
	{ID: RTF, Ext: ".rtf", Description: "Rich Text Format document", Viewer: "LibreOffice Writer"},
	{ID: DOCX, Ext: ".docx", Aliases: []string{".docm", ".dotx"}, Family: FamilyZip, Description: "Word document (Office Open XML)", Viewer: "LibreOffice Writer"},
	{ID: XLSX, Ext: ".xlsx", Aliases: []string{".xlsm", ".xltx"}, Family: FamilyZip, Description: "Excel workbook (Office Open XML)", Viewer: "LibreOffice Calc"},
	{ID: PPTX, Ext: ".pptx", Aliases: []string{".pptm", ".potx"}, Family: FamilyZip, Description: "PowerPoint presentation (Office Open XML)", Viewer: "LibreOffice Impress"},
	{ID: ODT, Ext: ".odt", Family: FamilyZip, Description: "OpenDocument text", Viewer: "LibreOffice Writer"},
	{ID: ODS, Ext: ".ods", Family: FamilyZip, Description: "OpenDocument spreadsheet", Viewer: "LibreOffice Calc"},
	{ID: ODP, Ext: ".odp", Family: FamilyZip, Description: "OpenDocument presentation", Viewer: "LibreOffice Impress"},
	{ID: EPUB, Ext: ".epub", Family: FamilyZip, Description: "EPUB e-book", Viewer: "Calibre / SumatraPDF"},

	{ID: MP3, Ext: ".mp3", Description: "MP3 audio", Viewer: "VLC / foobar2000"},
	{ID: FLAC, Ext: ".flac", Description: "FLAC audio (lossless)", Viewer: "VLC / foobar2000"},
	{ID: OGG, Ext: ".ogg", Aliases: []string{".oga", ".ogv"}, Description: "Ogg/Vorbis audio", Viewer: "VLC"},
	{ID: OPUS, Ext: ".opus", Description: "Opus audio", Viewer: "VLC / foobar2000"},
	{ID: WAV, Ext: ".wav", Description: "WAV audio (RIFF)", Viewer: "VLC / Audacity"},
	{ID: M4A, Ext: ".m4a", Description: "MPEG-4 audio", Viewer: "VLC"},

	{ID: MP4, Ext: ".mp4", Aliases: []string{".m4v"}, Description: "MP4 video (H.264/H.265)", Viewer: "VLC"},
	{ID: MOV, Ext: ".mov", Description: "QuickTime video", Viewer: "VLC"},
	{ID: MKV, Ext: ".mkv", Aliases: []string{".mka", ".mk3d"}, Description: "Matroska video", Viewer: "VLC"},
	{ID: WEBM, Ext: ".webm", Description: "WebM video", Viewer: "VLC"},
	{ID: AVI, Ext: ".avi", Description: "AVI video (RIFF)", Viewer: "VLC"},

	{ID: ZIP, Ext: ".zip", Family: FamilyZip, Description: "ZIP archive", Viewer: "7-Zip / PeaZip"},
	{ID: SEVENZ, Ext: ".7z", Description: "7-Zip archive", Viewer: "7-Zip / PeaZip"},
	{ID: GZIP, Ext: ".gz", Aliases: []string{".tgz"}, Description: "GZip stream", Viewer: "7-Zip / PeaZip"},
	{ID: BZIP2, Ext: ".bz2", Aliases: []string{".tbz2"}, Description: "BZip2 stream", Viewer: "7-Zip / PeaZip"},
	{ID: XZ, Ext: ".xz", Aliases: []string{".txz"}, Description: "XZ stream", Viewer: "7-Zip / PeaZip"},
	{ID: RAR, Ext: ".rar", Description: "RAR archive", Viewer: "PeaZip"},

	{ID: JSON, Ext: ".json", Family: FamilyText, Description: "JSON (structured text)", Viewer: "VS Code / Notepad++"},
	{ID: XML, Ext: ".xml", Aliases: []string{".svg", ".xsd", ".xsl"}, Family: FamilyText, Description: "XML (structured text)", Viewer: "VS Code / Notepad++"},
	{ID: HTML, Ext: ".html", Aliases: []string{".htm", ".xhtml"}, Family: FamilyText, Description: "HTML page", Viewer: "Web browser / VS Code"},
	{ID: TXT, Ext: ".txt", Aliases: []string{".log", ".csv", ".md", ".ini", ".cfg", ".conf"}, Family: FamilyText, Description: "Plain text", Viewer: "Notepad++ / VS Code"},

	{ID: SQLITE, Ext: ".sqlite", Aliases: []string{".sqlite3", ".db"}, Description: "SQLite database", Viewer: "DB Browser for SQLite"},
	{ID: ELF, Ext: ".elf", Aliases: []string{".so", ".o"}, Description: "ELF executable", Viewer: "-"},
	{ID: EXE, Ext: ".exe", Aliases: []string{".dll", ".sys", ".scr"}, Description: "Windows executable (PE)", Viewer: "-"},
	{ID: JAR, Ext: ".jar", Aliases: []string{".war", ".ear"}, Family: FamilyZip, Description: "Java archive (ZIP with classes)", Viewer: "Java Runtime / 7-Zip"},
	{ID: APK, Ext: ".apk", Family: FamilyZip, Description: "Android package (ZIP)", Viewer: "Android Studio / APKTool"},
	{ID: WOFF, Ext: ".woff", Description: "WOFF font", Viewer: "Font viewer"},
	{ID: WOFF2, Ext: ".woff2", Description: "WOFF2 font", Viewer: "Font viewer"},
	{ID: TTF, Ext: ".ttf", Description: "TrueType font", Viewer: "System font viewer"},
	{ID: OTF, Ext: ".otf", Description: "OpenType font", Viewer: "System font viewer"},
}

var (
	byID  = indexFormats(func(f Format) string { return f.ID })
	byExt = indexFormats(func(f Format) string { return f.Ext })
)

func indexFormats(key func(Format) string) map[string]Format {
	m := make(map[string]Format, len(catalog))
	for _, f := range catalog {
		m[key(f)] = f
	}
	return m
}

// Lookup returns the catalog entry for a format identifier
func Lookup(id string) (Format, bool) {
	f, ok := byID[id]
	return f, ok
}

// MustLookup returns the catalog entry for id and panics if it is missing.
// It is only used when building static tables.
func MustLookup(id string) Format {
	f, ok := byID[id]
	if !ok {
		panic("signature: unknown format " + id)
	}
	return f
}

// ByExtension returns the format whose canonical extension is ext
func ByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := byExt[ext]
	return f, ok
}

// IsZipFamily reports whether id names ZIP or a ZIP-based format
func IsZipFamily(id string) bool {
	f, ok := byID[id]
	return ok && f.Family == FamilyZip
}

// Formats returns every catalogued format sorted by identifier
func Formats() []Format {
	out := make([]Format, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
