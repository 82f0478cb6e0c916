package album

import "time"

// Manifest is the per-album sidecar recording display order and title.
type Manifest struct {
	Order []string `json:"order"`
	Title string   `json:"title"`
}

// ItemResult reports the outcome of one element of a batch operation.
type ItemResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// RenamePair maps an old filename to its new one.
type RenamePair struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// TreeNode is one directory in the folder tree.
type TreeNode struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	ImageCount int         `json:"image_count"`
	IsAlbum    bool        `json:"is_album"`
	Slug       string      `json:"slug,omitempty"`
	Children   []*TreeNode `json:"children"`
}

// FolderContents lists the ordered images and subfolders of one folder.
type FolderContents struct {
	Path       string   `json:"path"`
	Files      []string `json:"files"`
	Subfolders []string `json:"subfolders"`
}

// TokenSummary describes a flat token album for the admin listing.
type TokenSummary struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// AlbumView is what a visitor sees when opening a token or slug.
type AlbumView struct {
	Token    string   `json:"token"`
	Title    string   `json:"title"`
	Files    []string `json:"files"`
	Count    int      `json:"count"`
	RealPath string   `json:"real_path,omitempty"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Token string `json:"token"`
	File  string `json:"file"`
	Size  int64  `json:"size"`
}

// ImportReport counts the outcome of a zip or folder import.
type ImportReport struct {
	Imported        int `json:"imported"`
	SkippedHidden   int `json:"skipped_hidden"`
	SkippedType     int `json:"skipped_type"`
	SkippedRoot     int `json:"skipped_root"`
	SkippedPath     int `json:"skipped_path"`
	SkippedOversize int `json:"skipped_oversize"`
	SkippedExisting int `json:"skipped_existing"`
}

// RemoveResult describes a removed token.
type RemoveResult struct {
	Token      string `json:"token"`
	Mode       string `json:"mode"`
	ArchivedTo string `json:"archived_to,omitempty"`
	Exported   string `json:"exported,omitempty"`
}

// StatsEntry holds the view counters of one album key.
type StatsEntry struct {
	Views      int64  `json:"views"`
	FirstVisit string `json:"first_visit"`
	LastVisit  string `json:"last_visit"`
}

// Visit is one record in the visit log.
type Visit struct {
	Token     string `json:"token"`
	IP        string `json:"ip"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Country   string `json:"country"`
	UserAgent string `json:"ua"`
	Time      string `json:"time"`
}

// Count is a label with its number of occurrences.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Correlation lists the distinct albums one IP visited.
type Correlation struct {
	IP     string   `json:"ip"`
	Tokens []string `json:"tokens"`
	Total  int      `json:"total"`
}

// AnalyticsReport aggregates the visit log.
type AnalyticsReport struct {
	Recent       []Visit       `json:"recent"`
	ByCity       []Count       `json:"by_city"`
	ByDate       []Count       `json:"by_date"`
	ByToken      []Count       `json:"by_token"`
	Correlations []Correlation `json:"correlations"`
	Today        int           `json:"today"`
	UniqueIPs    int           `json:"unique_ips"`
	UniqueTokens int           `json:"unique_tokens"`
	Total        int           `json:"total"`
}

// Location is the result of a geolocation lookup.
type Location struct {
	City    string
	Region  string
	Country string
}

// ArchiveInfo describes an exported archive stored in a vault.
type ArchiveInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}
