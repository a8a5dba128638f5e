// Package config loads layered yaml configuration and supports live reload
// on SIGHUP. Keys are addressed with dotted paths ("ring.num_slots") and
// every getter takes a default returned when the key is absent or malformed.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"dario.cat/mergo"
	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"
)

type C struct {
	path        string
	files       []string
	Settings    map[string]any
	oldSettings map[string]any
	callbacks   []func(*C)
	l           *logrus.Logger
	reloadLock  sync.Mutex
}

func NewC(l *logrus.Logger) *C {
	return &C{
		Settings: make(map[string]any),
		l:        l,
	}
}

// Load reads every yaml file under path, in lexical order, and merges them
// into a single settings tree. path may be a single file or a directory.
func (c *C) Load(path string) error {
	c.path = path
	c.files = c.files[:0]

	if err := c.resolve(path, true); err != nil {
		return err
	}

	if len(c.files) == 0 {
		return fmt.Errorf("no config files found at %s", path)
	}

	sort.Strings(c.files)
	return c.parse()
}

// LoadString parses raw yaml directly, replacing any previous settings.
func (c *C) LoadString(raw string) error {
	if raw == "" {
		return errors.New("empty configuration")
	}

	var m map[string]any
	if err := yaml.Unmarshal([]byte(raw), &m); err != nil {
		return err
	}

	c.Settings = m
	return nil
}

// RegisterReloadCallback stores a function to run after each successful
// reload. Callbacks should use HasChanged to decide whether their part of
// the config moved, and must return quickly or hand off to a goroutine.
func (c *C) RegisterReloadCallback(f func(*C)) {
	c.callbacks = append(c.callbacks, f)
}

// InitialLoad reports whether the config has never been reloaded.
func (c *C) InitialLoad() bool {
	return c.oldSettings == nil
}

// HasChanged reports whether the subtree at k differs between the current
// settings and the snapshot taken before the last reload. An empty k
// compares the whole config. Comparison is by serialized form, so key
// reordering can register as a change.
func (c *C) HasChanged(k string) bool {
	if c.oldSettings == nil {
		return false
	}

	var nv, ov any
	if k == "" {
		nv = c.Settings
		ov = c.oldSettings
		k = "all settings"
	} else {
		nv = c.get(k, c.Settings)
		ov = c.get(k, c.oldSettings)
	}

	newVals, err := yaml.Marshal(nv)
	if err != nil {
		c.l.WithField("config_path", k).WithError(err).Error("Error while marshaling new config")
	}

	oldVals, err := yaml.Marshal(ov)
	if err != nil {
		c.l.WithField("config_path", k).WithError(err).Error("Error while marshaling old config")
	}

	return string(newVals) != string(oldVals)
}

// CatchHUP reloads the config from the original Load path whenever SIGHUP
// arrives, until ctx is cancelled. A config loaded from a string has no
// path and is never reloaded.
func (c *C) CatchHUP(ctx context.Context) {
	if c.path == "" {
		return
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(ch)
				close(ch)
				return
			case <-ch:
				c.l.Info("Caught HUP, reloading config")
				c.ReloadConfig()
			}
		}
	}()
}

func (c *C) ReloadConfig() {
	c.reloadLock.Lock()
	defer c.reloadLock.Unlock()

	c.snapshot()
	if err := c.Load(c.path); err != nil {
		c.l.WithField("config_path", c.path).WithError(err).Error("Error occurred while reloading config")
		return
	}

	for _, f := range c.callbacks {
		f(c)
	}
}

// ReloadConfigString is ReloadConfig for string-backed configs, used by
// tests that drive reload callbacks without touching the filesystem.
func (c *C) ReloadConfigString(raw string) error {
	c.reloadLock.Lock()
	defer c.reloadLock.Unlock()

	c.snapshot()
	if err := c.LoadString(raw); err != nil {
		return err
	}

	for _, f := range c.callbacks {
		f(c)
	}

	return nil
}

// snapshot shallow-copies the current settings for HasChanged comparison.
func (c *C) snapshot() {
	c.oldSettings = make(map[string]any, len(c.Settings))
	for k, v := range c.Settings {
		c.oldSettings[k] = v
	}
}

// GetString returns the string at k, or d if the key is absent.
func (c *C) GetString(k, d string) string {
	r := c.Get(k)
	if r == nil {
		return d
	}

	return fmt.Sprintf("%v", r)
}

// GetMap returns the map at k, or d if the key is absent or not a map.
func (c *C) GetMap(k string, d map[string]any) map[string]any {
	r := c.Get(k)
	if r == nil {
		return d
	}

	v, ok := r.(map[string]any)
	if !ok {
		return d
	}

	return v
}

// GetInt returns the int at k, or d if the key is absent or unparsable.
func (c *C) GetInt(k string, d int) int {
	r := c.GetString(k, strconv.Itoa(d))
	v, err := strconv.Atoi(r)
	if err != nil {
		return d
	}

	return v
}

// GetUint32 returns the uint32 at k, or d if the value is absent, negative
// or overflows.
func (c *C) GetUint32(k string, d uint32) uint32 {
	r := c.GetInt(k, int(d))
	if r < 0 || uint64(r) > uint64(math.MaxUint32) {
		return d
	}
	return uint32(r)
}

// GetBool returns the bool at k, accepting y/yes/n/no alongside the usual
// spellings, or d if the key is absent or unparsable.
func (c *C) GetBool(k string, d bool) bool {
	r := strings.ToLower(c.GetString(k, fmt.Sprintf("%v", d)))
	v, err := strconv.ParseBool(r)
	if err != nil {
		switch r {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		return d
	}

	return v
}

// GetDuration returns the duration at k, or d if the key is absent or
// unparsable.
func (c *C) GetDuration(k string, d time.Duration) time.Duration {
	r := c.GetString(k, "")
	v, err := time.ParseDuration(r)
	if err != nil {
		return d
	}
	return v
}

func (c *C) Get(k string) any {
	return c.get(k, c.Settings)
}

func (c *C) IsSet(k string) bool {
	return c.get(k, c.Settings) != nil
}

func (c *C) get(k string, v any) any {
	for _, p := range strings.Split(k, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}

		v, ok = m[p]
		if !ok {
			return nil
		}
	}

	return v
}

// direct marks the path the caller handed to Load; files discovered by
// walking a directory must carry a yaml extension, the direct path need not.
func (c *C) resolve(path string, direct bool) error {
	i, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if !i.IsDir() {
		c.addFile(path, direct)
		return nil
	}

	paths, err := readDirNames(path)
	if err != nil {
		return fmt.Errorf("problem while reading directory %s: %s", path, err)
	}

	for _, p := range paths {
		if err := c.resolve(filepath.Join(path, p), false); err != nil {
			return err
		}
	}

	return nil
}

func (c *C) addFile(path string, direct bool) error {
	ext := filepath.Ext(path)

	if !direct && ext != ".yaml" && ext != ".yml" {
		return nil
	}

	ap, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	c.files = append(c.files, ap)
	return nil
}

func (c *C) parse() error {
	var m map[string]any

	for _, path := range c.files {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var nm map[string]any
		if err := yaml.Unmarshal(b, &nm); err != nil {
			return err
		}

		// WithAppendSlice keeps list-valued keys split across files, such
		// as per-queue overrides, from clobbering each other.
		if err := mergo.Merge(&nm, m, mergo.WithAppendSlice); err != nil {
			return err
		}
		m = nm
	}

	c.Settings = m
	return nil
}

func readDirNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	paths, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}
