package config

const railwayDataDir = "/app/data"

// Значения по умолчанию для необязательных параметров.
const (
	DefaultAlbumDebounceMS        = 1000
	DefaultPendingCap             = 500
	DefaultCleanupIntervalMinutes = 30
	DefaultBroadcastDelayMS       = 50
)

// Имена файлов с данными внутри DataDir.
const (
	UserIDMapFile    = "user_id_map.txt"
	PostCounterFile  = "post_number.txt"
	ReplyCounterFile = "reply_number.txt"
	AdminModeFile    = "admin_mode.txt"
	LockFile         = "bot.pid"
)
