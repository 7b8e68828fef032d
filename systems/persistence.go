package systems

import (
	"encoding/json"
	"fmt"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/messages"
	"github.com/quasilyte/gdata"
	"go.uber.org/zap"
)

const profileKey = "profile"

// Profile is the client data kept between runs.
type Profile struct {
	Name       string `json:"name"`
	ServerAddr string `json:"serverAddr"`
	Difficulty int    `json:"difficulty"`
}

// DefaultProfile is used when nothing was saved yet.
func DefaultProfile() Profile {
	return Profile{
		Name:       config.Player.DefaultName,
		ServerAddr: config.DefaultClientConfig().ServerAddr,
		Difficulty: int(config.BotDifficultyNormal),
	}
}

// itemStore is the part of *gdata.Manager the profile needs.
type itemStore interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

// ProfileStore reads and writes the Profile through gdata.
type ProfileStore struct {
	items itemStore
	log   *zap.SugaredLogger
}

// OpenProfileStore opens the per-user data directory for appName.
func OpenProfileStore(appName string, log *zap.SugaredLogger) (*ProfileStore, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	return newProfileStore(m, log), nil
}

func newProfileStore(items itemStore, log *zap.SugaredLogger) *ProfileStore {
	return &ProfileStore{items: items, log: log.Named("profile")}
}

// Load returns the saved profile, or DefaultProfile when none exists or the
// stored one cannot be read.
func (s *ProfileStore) Load() Profile {
	p := DefaultProfile()
	data, err := s.items.LoadItem(profileKey)
	if err != nil {
		s.log.Warnf("could not load profile: %v", err)
		return p
	}
	if len(data) == 0 {
		return p
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warnf("could not parse saved profile: %v", err)
		return DefaultProfile()
	}
	p.Name = messages.TruncateName(p.Name)
	if p.Name == "" {
		p.Name = config.Player.DefaultName
	}
	return p
}

// Save stores p, truncating the name to what the wire can carry.
func (s *ProfileStore) Save(p Profile) error {
	p.Name = messages.TruncateName(p.Name)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.items.SaveItem(profileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
