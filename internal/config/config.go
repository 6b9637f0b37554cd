package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Redis struct {
		Addr string
		Db   int
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	PriceFeeds struct {
		CryptoURL string
		FxURL     string
	}
	Exchange struct {
		BaseURL   string
		SecretKey string
	}
	KafkaServers string
}
