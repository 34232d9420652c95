package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"schedbot/pkg/logx"
)

// fileStore keeps the whole subscriber state in one JSON file and rewrites it
// atomically on every mutation. Subscriber counts are small (a group chat's
// worth), so a full rewrite is fine.
type fileStore struct {
	log  logx.Logger
	path string

	mu    sync.Mutex
	state fileState
}

type fileState struct {
	Chats      []int64           `json:"chats"`
	ChatGroups map[string]string `json:"chat_groups"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, state: fileState{ChatGroups: map[string]string{}}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var st fileState
	if err := json.Unmarshal(b, &st); err != nil {
		// A corrupt state file must not brick the bot; start fresh and say so.
		s.log.Warn("subscriber state unreadable; starting empty", logx.String("path", s.path), logx.Err(err))
		return nil
	}
	if st.ChatGroups == nil {
		st.ChatGroups = map[string]string{}
	}
	s.state = st
	return nil
}

// saveLocked rewrites the state file atomically. Callers hold s.mu.
func (s *fileStore) saveLocked() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) GetGroup(ctx context.Context, chatID int64) (string, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	gid, ok := s.state.ChatGroups[strconv.FormatInt(chatID, 10)]
	return gid, ok, nil
}

func (s *fileStore) SetGroup(ctx context.Context, chatID int64, gid string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChatGroups[strconv.FormatInt(chatID, 10)] = gid
	return s.saveLocked()
}

func (s *fileStore) Subscribers(ctx context.Context) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Chats), nil
}

func (s *fileStore) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.state.Chats, chatID) {
		return false, nil
	}
	s.state.Chats = append(s.state.Chats, chatID)
	return true, s.saveLocked()
}

func (s *fileStore) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.state.Chats, chatID)
	if i < 0 {
		return false, nil
	}
	s.state.Chats = slices.Delete(s.state.Chats, i, i+1)
	return true, s.saveLocked()
}

func (s *fileStore) Close() error { return nil }
