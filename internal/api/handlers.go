package api

import (
	"net/http"
	"strings"

	"github.com/aezell/prview/internal/analysis"
	"github.com/aezell/prview/internal/diff"
	"github.com/aezell/prview/internal/model"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Parse ---

// parseRequest carries either a single-file patch or a full git diff.
type parseRequest struct {
	Patch string `json:"patch,omitempty"`
	Diff  string `json:"diff,omitempty"`
}

type parseResponse struct {
	Hunks []hunkJSON    `json:"hunks,omitempty"`
	Files []fileJSON    `json:"files,omitempty"`
	Stats diffStatsJSON `json:"stats"`
}

type diffStatsJSON struct {
	Files   int `json:"files"`
	Hunks   int `json:"hunks"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

type fileJSON struct {
	Name         string     `json:"name"`
	OldName      string     `json:"old_name,omitempty"`
	NewName      string     `json:"new_name,omitempty"`
	IsNew        bool       `json:"is_new,omitempty"`
	IsDeleted    bool       `json:"is_deleted,omitempty"`
	IsRenamed    bool       `json:"is_renamed,omitempty"`
	IsBinary     bool       `json:"is_binary,omitempty"`
	AddedLines   int        `json:"added_lines"`
	DeletedLines int        `json:"deleted_lines"`
	Hunks        []hunkJSON `json:"hunks"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	switch {
	case req.Diff != "":
		ds, err := diff.Parse(req.Diff)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parsing diff: "+err.Error())
			return
		}
		var resp parseResponse
		resp.Stats.Files, resp.Stats.Added, resp.Stats.Deleted = ds.Stats()
		for _, f := range ds.Files {
			hunks := f.Hunks()
			resp.Stats.Hunks += len(hunks)
			resp.Files = append(resp.Files, fileJSON{
				Name:         f.Name(),
				OldName:      f.OldName,
				NewName:      f.NewName,
				IsNew:        f.IsNew,
				IsDeleted:    f.IsDeleted,
				IsRenamed:    f.IsRenamed,
				IsBinary:     f.IsBinary,
				AddedLines:   f.AddedLines,
				DeletedLines: f.DeletedLines,
				Hunks:        toHunksJSON(hunks),
			})
		}
		writeJSON(w, http.StatusOK, resp)

	case strings.TrimSpace(req.Patch) != "":
		hunks, err := diff.ParseHunks(req.Patch)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parsing patch: "+err.Error())
			return
		}
		resp := parseResponse{Hunks: toHunksJSON(hunks)}
		resp.Stats.Files = 1
		resp.Stats.Hunks = len(hunks)
		for _, h := range hunks {
			for _, l := range h.Lines {
				switch l.Kind {
				case model.LineAdded:
					resp.Stats.Added++
				case model.LineRemoved:
					resp.Stats.Deleted++
				}
			}
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusBadRequest, "patch or diff is required")
	}
}

// --- Apply ---

type applyRequest struct {
	Path   string     `json:"path"`
	Base   string     `json:"base"`
	Source sourceJSON `json:"source"`
	Patch  string     `json:"patch"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	blob := model.NewBlob(req.Path, []byte(req.Base))
	p := patchJSON{Source: req.Source, Patch: req.Patch}
	out := diff.ApplyPatch(blob, p.raw())
	writeJSON(w, http.StatusOK, toAnnotatedJSON(out, req.Source.ID))
}

// --- Interleave ---

type interleaveRequest struct {
	Path    string      `json:"path"`
	Base    string      `json:"base"`
	Patches []patchJSON `json:"patches"`
}

func (req interleaveRequest) rawPatches() []diff.RawPatch {
	out := make([]diff.RawPatch, 0, len(req.Patches))
	for _, p := range req.Patches {
		out = append(out, p.raw())
	}
	return out
}

func (s *Server) handleInterleave(w http.ResponseWriter, r *http.Request) {
	var req interleaveRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	blob := model.NewBlob(req.Path, []byte(req.Base))
	out := diff.InterleavePatches(blob, req.rawPatches())
	writeJSON(w, http.StatusOK, toAnnotatedJSON(out, 0))
}

// --- Analyze ---

type analyzeRequest struct {
	interleaveRequest
	Skip []string `json:"skip,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	subject := newSubject(req.Path, []byte(req.Base), req.rawPatches())
	results := analysis.Run([]*analysis.Subject{subject}, req.Skip)
	writeJSON(w, http.StatusOK, toAnalysisJSON(results))
}

// newSubject parses every patch, turning parse failures into warnings.
func newSubject(path string, base []byte, patches []diff.RawPatch) *analysis.Subject {
	contribs, warnings := diff.ParsePatches(patches)
	return analysis.NewSubject(path, model.NewBlob(path, base), contribs, warnings...)
}
