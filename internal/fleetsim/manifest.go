package fleetsim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// manifestEntry mirrors fleet.DeviceSpec. The interval is kept loose so
// "500ms" and a bare number of milliseconds both work.
type manifestEntry struct {
	DeviceID         string         `yaml:"device_id"`
	LogicModule      string         `yaml:"logic_module"`
	TelemetrySink    string         `yaml:"telemetry_sink"`
	ScheduleInterval any            `yaml:"schedule_interval"`
	Options          device.Options `yaml:"options"`
}

type manifest struct {
	Devices []manifestEntry `yaml:"devices"`
}

// LoadManifest reads a YAML fleet manifest:
//
//	devices:
//	  - device_id: counter-1
//	    schedule_interval: 500ms
//	    options: {count: 0, max_count: 10}
func LoadManifest(path string) ([]fleet.DeviceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	specs := make([]fleet.DeviceSpec, 0, len(m.Devices))
	for _, e := range m.Devices {
		opts := make(device.Options, len(e.Options)+1)
		for k, v := range e.Options {
			opts[k] = v
		}
		if e.ScheduleInterval != nil {
			opts[fleet.OptionScheduleInterval] = e.ScheduleInterval
		}
		specs = append(specs, fleet.DeviceSpec{
			DeviceID:      e.DeviceID,
			LogicModule:   e.LogicModule,
			TelemetrySink: e.TelemetrySink,
			Options:       opts,
		})
	}
	return specs, nil
}

// ManifestLoader deploys a manifest at startup and, when watching, deploys
// entries added to the file later on. Devices removed from the file keep
// running; entries without a device_id are only deployed by the first load.
type ManifestLoader struct {
	path      string
	watch     bool
	commander *fleet.Commander
	logger    log.Logger
}

func NewManifestLoader(path string, watch bool, commander *fleet.Commander, logger log.Logger) *ManifestLoader {
	return &ManifestLoader{
		path:      path,
		watch:     watch,
		commander: commander,
		logger:    logger.WithName("manifest").WithValues("path", path),
	}
}

func (l *ManifestLoader) Start(ctx context.Context) error {
	specs, err := LoadManifest(l.path)
	if err != nil {
		return err
	}
	l.deploy(ctx, specs)

	if !l.watch {
		return nil
	}
	return l.watchFile(ctx)
}

// Reload re-reads the manifest and deploys the named entries that are not
// running yet.
func (l *ManifestLoader) Reload(ctx context.Context) error {
	specs, err := LoadManifest(l.path)
	if err != nil {
		return err
	}

	named := specs[:0]
	for _, s := range specs {
		if s.DeviceID != "" {
			named = append(named, s)
		}
	}
	l.deploy(ctx, named)
	return nil
}

func (l *ManifestLoader) deploy(ctx context.Context, specs []fleet.DeviceSpec) {
	var deployed, failed int
	for _, r := range l.commander.DeployFleet(ctx, specs) {
		switch {
		case r.Err == nil:
			deployed++
		case errors.Is(r.Err, util.ErrAlreadyRegistered):
			// Already running from an earlier load.
		default:
			failed++
		}
	}
	l.logger.Info("Manifest applied", "entries", len(specs), "deployed", deployed, "failed", failed)
}

// watchFile watches the parent directory, since editors usually replace the
// file instead of writing it in place.
func (l *ManifestLoader) watchFile(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create manifest watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(l.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch manifest: %w", err)
	}
	l.logger.Info("Watching manifest for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := l.Reload(ctx); err != nil {
				l.logger.Error(err, "Failed to reload manifest")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error(err, "Manifest watcher error")
		}
	}
}
