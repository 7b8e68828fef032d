package config

import "time"

// PlayerConfig contains all player-related configuration values
type PlayerConfig struct {
	// Movement (pixels per second)
	Speed float64

	// Dimensions
	CollisionWidth  float64
	CollisionHeight float64

	// Spawn position (top-left of the collision rectangle)
	SpawnX float64
	SpawnY float64

	// Health is normalized to [0, 1]
	Health float64

	DefaultName string
}

// BulletConfig contains projectile configuration
type BulletConfig struct {
	Speed    float64 // pixels per second
	Size     float64 // square side length
	Damage   float64 // health removed per hit
	Lifetime time.Duration
}

// NetConfig contains timing values shared by server and client
type NetConfig struct {
	Port               int
	TickInterval       time.Duration
	InterpolationDelay time.Duration
	ResendInterval     time.Duration // connect/disconnect retransmission
	PollTimeout        time.Duration // read deadline used by receive loops
	MaxPlayers         int
}

// MapConfig names the tile property and layers consulted for collision
type MapConfig struct {
	BlockingProperty string
	SpawnGroup       string
}

var (
	Player PlayerConfig
	Bullet BulletConfig
	Net    NetConfig
	Map    MapConfig
)

func init() {
	Player = PlayerConfig{
		Speed:           80.0,
		CollisionWidth:  8.0,
		CollisionHeight: 12.0,
		SpawnX:          20.0,
		SpawnY:          20.0,
		Health:          1.0,
		DefaultName:     "Unnamed User",
	}

	Bullet = BulletConfig{
		Speed:    300.0,
		Size:     6.0,
		Damage:   0.2,
		Lifetime: 5 * time.Second,
	}

	Net = NetConfig{
		Port:               8080,
		TickInterval:       16 * time.Millisecond,
		InterpolationDelay: 100 * time.Millisecond,
		ResendInterval:     250 * time.Millisecond,
		PollTimeout:        10 * time.Millisecond,
		MaxPlayers:         8,
	}

	Map = MapConfig{
		BlockingProperty: "blocked",
		SpawnGroup:       "PlayerSpawn",
	}
}

// ServerConfig holds everything the authoritative server needs to run one
// world. Values default to the package-level tuning above.
type ServerConfig struct {
	Name         string
	Port         int
	TickInterval time.Duration
	MaxPlayers   int

	// LagWindow bounds the allowed skew between a bullet's creation time and
	// a victim's last input timestamp for a hit to count.
	LagWindow time.Duration

	PlayerSpeed    float64
	BulletSpeed    float64
	BulletDamage   float64
	BulletLifetime time.Duration

	// Optional surfaces
	AdminAddr string // empty disables the admin HTTP server
	MasterURL string // empty disables master server announcement
	Region    string
}

// DefaultServerConfig returns a ServerConfig filled from the game tuning.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Name:           "HIDO Server",
		Port:           Net.Port,
		TickInterval:   Net.TickInterval,
		MaxPlayers:     Net.MaxPlayers,
		LagWindow:      Net.TickInterval,
		PlayerSpeed:    Player.Speed,
		BulletSpeed:    Bullet.Speed,
		BulletDamage:   Bullet.Damage,
		BulletLifetime: Bullet.Lifetime,
	}
}

// ClientConfig holds the client-side networking and rendering cadence.
type ClientConfig struct {
	ServerAddr         string
	Name               string
	FrameInterval      time.Duration
	InterpolationDelay time.Duration
	ResendInterval     time.Duration
	PollTimeout        time.Duration
	PlayerSpeed        float64
}

// DefaultClientConfig returns a ClientConfig targeting a local server.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerAddr:         "127.0.0.1:8080",
		Name:               Player.DefaultName,
		FrameInterval:      time.Second / 60,
		InterpolationDelay: Net.InterpolationDelay,
		ResendInterval:     Net.ResendInterval,
		PollTimeout:        Net.PollTimeout,
		PlayerSpeed:        Player.Speed,
	}
}
