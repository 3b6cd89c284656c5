package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式。
type Format string

// 支持的格式
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const (
	delim = "."
	tag   = "koanf"
)

// Option 配置 Store。
type Option func(*Store)

// WithDefaults 设置默认值，键使用 "." 分隔的路径（如 "sampling.ratio"）。
func WithDefaults(defaults map[string]any) Option {
	return func(s *Store) {
		s.defaults = defaults
	}
}

// Store 持有一份可热重载的配置快照。并发安全。
type Store struct {
	path     string
	format   Format
	defaults map[string]any

	reloadMu sync.Mutex
	current  atomic.Pointer[koanf.Koanf]
	version  atomic.Uint64
}

// Load 从文件加载配置，格式由扩展名决定（.yaml/.yml/.json）。
func Load(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	s := newStore(path, format, opts)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadBytes 从字节数据加载配置。空数据得到只含默认值的配置。
// 这样得到的 Store 不能 Reload 或 Watch。
func LoadBytes(data []byte, format Format, opts ...Option) (*Store, error) {
	if !slices.Contains([]Format{FormatYAML, FormatJSON}, format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	s := newStore("", format, opts)
	k, err := s.build(data)
	if err != nil {
		return nil, err
	}
	s.current.Store(k)
	s.version.Store(1)
	return s, nil
}

func newStore(path string, format Format, opts []Option) *Store {
	s := &Store{path: path, format: format}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FormatOf 根据扩展名返回配置格式。
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
}

// build 依次写入默认值与 data，返回新的 koanf 实例。
func (s *Store) build(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(delim)
	keys := make([]string, 0, len(s.defaults))
	for key := range s.defaults {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := k.Set(key, s.defaults[key]); err != nil {
			return nil, fmt.Errorf("%w: default %q: %w", ErrParseFailed, key, err)
		}
	}
	if len(data) == 0 {
		return k, nil
	}
	if err := k.Load(rawbytes.Provider(data), parserFor(s.format)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}

func parserFor(format Format) koanf.Parser {
	if format == FormatJSON {
		return json.Parser()
	}
	return yaml.Parser()
}

// Reload 重新读取配置文件。失败时保留当前快照。
func (s *Store) Reload() error {
	if s.path == "" {
		return ErrNotWatchable
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := s.build(data)
	if err != nil {
		return err
	}
	s.current.Store(k)
	s.version.Add(1)
	return nil
}

// Koanf 返回当前快照。Reload 之后旧快照仍然可用，但不再更新。
func (s *Store) Koanf() *koanf.Koanf {
	return s.current.Load()
}

// Unmarshal 把 path 下的配置（path 为空表示全部）解码到 target，字段标签为 koanf。
func (s *Store) Unmarshal(path string, target any) error {
	if err := s.Koanf().UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Marshal 以 Store 的格式序列化当前快照（含默认值）。
func (s *Store) Marshal() ([]byte, error) {
	return s.Koanf().Marshal(parserFor(s.format))
}

// Version 成功加载的次数，初次加载后为 1。
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Path 配置文件路径；LoadBytes 创建的 Store 返回空字符串。
func (s *Store) Path() string {
	return s.path
}

// Format 配置格式。
func (s *Store) Format() Format {
	return s.format
}
