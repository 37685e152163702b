// Package artifact persists the trained model, scaler and metrics document,
// rotates backups and keeps the retraining audit log.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/trainer"
)

// File names of the current artifact.
const (
	ModelFile   = "model.json"
	ScalerFile  = "scaler.json"
	MetricsFile = "model_metrics.json"
)

const backupStampLayout = "20060102_150405"

// Artifact is everything a retraining run publishes.
type Artifact struct {
	Model  *trainer.Model
	Scaler *trainer.Scaler
	Info   model.ModelInfo
}

// Backup lists where the previous artifact was moved. Empty fields were not present.
type Backup struct {
	Model   string
	Scaler  string
	Metrics string
}

// Manager owns the current artifact slot and its backups.
type Manager struct {
	mu        sync.Mutex
	store     *FileStore
	backupDir string
	log       zerolog.Logger

	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// NewManager creates the model and backup directories if needed.
func NewManager(modelDir, backupDir string, log zerolog.Logger) (*Manager, error) {
	store, err := NewFileStore(modelDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", backupDir, err)
	}
	return &Manager{
		store:     store,
		backupDir: backupDir,
		log:       log,
		now:       time.Now,
		rename:    os.Rename,
	}, nil
}

// Dir returns the current artifact directory.
func (m *Manager) Dir() string { return m.store.Dir }

// Current returns the metrics document of the active artifact, or nil if there is none.
func (m *Manager) Current() (*model.ModelInfo, error) {
	return LoadInfo(m.store.Dir)
}

// BackupCurrent moves the active artifact into the backup directory, tagged with ts.
// It is a no-op when no model is present.
func (m *Manager) BackupCurrent(ts time.Time) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.backupCurrent(ts)
	if err != nil || b.Model == "" {
		return b, err
	}
	for _, name := range []string{MetricsFile, ScalerFile, ModelFile} {
		if err := os.Remove(m.store.Path(name)); err != nil && !os.IsNotExist(err) {
			return b, fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return b, nil
}

// backupCurrent links the active files into the backup directory. The current slot
// keeps its files, so readers never find it empty.
func (m *Manager) backupCurrent(ts time.Time) (*Backup, error) {
	b := &Backup{}
	if !m.store.Exists(ModelFile) {
		return b, nil
	}

	stamp := m.uniqueStamp(ts)
	links := []struct {
		name   string
		prefix string
		dst    *string
	}{
		{MetricsFile, "metrics", &b.Metrics},
		{ScalerFile, "scaler", &b.Scaler},
		{ModelFile, "model", &b.Model},
	}
	for _, l := range links {
		if !m.store.Exists(l.name) {
			continue
		}
		dst := filepath.Join(m.backupDir, l.prefix+"_backup_"+stamp+".json")
		if err := Link(m.store.Path(l.name), dst); err != nil {
			discard(b)
			return nil, fmt.Errorf("backup %s: %w", l.name, err)
		}
		*l.dst = dst
	}
	syncDir(m.backupDir)
	m.log.Info().Str("stamp", stamp).Str("dir", m.backupDir).Msg("previous model backed up")
	return b, nil
}

// uniqueStamp formats ts and appends _N until no backup file of that stamp exists.
func (m *Manager) uniqueStamp(ts time.Time) string {
	base := ts.Format(backupStampLayout)
	stamp := base
	for n := 1; ; n++ {
		taken := false
		for _, prefix := range []string{"model", "scaler", "metrics"} {
			if _, err := os.Stat(filepath.Join(m.backupDir, prefix+"_backup_"+stamp+".json")); err == nil {
				taken = true
				break
			}
		}
		if !taken {
			return stamp
		}
		stamp = base + "_" + strconv.Itoa(n)
	}
}

// discard removes backup files that were created for a save that did not happen.
func discard(b *Backup) {
	for _, p := range []string{b.Model, b.Scaler, b.Metrics} {
		if p != "" {
			os.Remove(p)
		}
	}
}

// Save publishes a new artifact. All three files are staged first, then the previous
// artifact is linked into the backup directory, then model, scaler and finally the
// metrics document are renamed over the current files. If promotion fails the backup
// is restored and ErrArtifactWrite is returned.
func (m *Manager) Save(a *Artifact) (*model.ModelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	modelData, err := encode(a.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: encode model: %w", model.ErrArtifactWrite, err)
	}
	scalerData, err := encode(a.Scaler)
	if err != nil {
		return nil, fmt.Errorf("%w: encode scaler: %w", model.ErrArtifactWrite, err)
	}
	info := a.Info
	info.Artifacts = model.ArtifactDigests{
		ModelSHA256:  digest(modelData),
		ScalerSHA256: digest(scalerData),
	}
	infoData, err := encode(info)
	if err != nil {
		return nil, fmt.Errorf("%w: encode metrics: %w", model.ErrArtifactWrite, err)
	}

	staged := []struct {
		name string
		data []byte
		tmp  string
	}{
		{name: ModelFile, data: modelData},
		{name: ScalerFile, data: scalerData},
		{name: MetricsFile, data: infoData},
	}
	cleanup := func() {
		for _, s := range staged {
			if s.tmp != "" {
				os.Remove(s.tmp)
			}
		}
	}
	for i := range staged {
		data := staged[i].data
		tmp, err := m.store.Stage(staged[i].name, func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: stage %s: %w", model.ErrArtifactWrite, staged[i].name, err)
		}
		staged[i].tmp = tmp
	}

	backup, err := m.backupCurrent(m.now())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", model.ErrArtifactWrite, err)
	}

	promoted := make(map[string]bool, len(staged))
	for i := range staged {
		if err := m.rename(staged[i].tmp, m.store.Path(staged[i].name)); err != nil {
			m.rollback(backup, promoted)
			cleanup()
			return nil, fmt.Errorf("%w: promote %s: %w", model.ErrArtifactWrite, staged[i].name, err)
		}
		staged[i].tmp = ""
		promoted[staged[i].name] = true
	}
	syncDir(m.store.Dir)

	m.log.Info().
		Str("run_id", info.RunID).
		Str("model_sha256", info.Artifacts.ModelSHA256[:12]).
		Msg("model artifact saved")
	return &info, nil
}

// rollback puts the backed-up files back over whatever was promoted. Promoted files
// without a backup are removed.
func (m *Manager) rollback(b *Backup, promoted map[string]bool) {
	for _, r := range []struct{ src, name string }{
		{b.Model, ModelFile},
		{b.Scaler, ScalerFile},
		{b.Metrics, MetricsFile},
	} {
		if r.src == "" {
			if promoted[r.name] {
				os.Remove(m.store.Path(r.name))
			}
			continue
		}
		if err := m.rename(r.src, m.store.Path(r.name)); err != nil {
			m.log.Error().Err(err).Str("file", r.src).Msg("restore from backup failed")
		}
	}
	syncDir(m.store.Dir)
	m.log.Warn().Msg("artifact promotion failed, previous model restored")
}

// ArchiveFeedback moves each consumed batch into an archived/ directory next to it.
func (m *Manager) ArchiveFeedback(batches []model.FeedbackBatch) ([]string, error) {
	var archived []string
	for _, b := range batches {
		dir := filepath.Join(filepath.Dir(b.Path), "archived")
		dst := uniquePath(filepath.Join(dir, filepath.Base(b.Path)))
		if err := Move(b.Path, dst); err != nil {
			return archived, fmt.Errorf("archive %s: %w", b.Path, err)
		}
		archived = append(archived, dst)
	}
	if len(archived) > 0 {
		m.log.Info().Int("files", len(archived)).Msg("feedback archived")
	}
	return archived, nil
}

// uniquePath appends _N before the extension until path does not exist.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for n := 1; ; n++ {
		p := base + "_" + strconv.Itoa(n) + ext
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}
