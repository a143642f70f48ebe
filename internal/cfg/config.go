package cfg

import (
	"strings"

	"github.com/spf13/viper"

	"revbot/internal/calendar"
	"revbot/internal/core"
	"revbot/internal/market"
)

// Config is everything outside the strategy itself: instruments, schedule,
// collaborators, and paths.
type Config struct {
	Underlying   string
	Bull         string
	BullLeverage string
	Bear         string
	BearLeverage string

	Interval      string
	TickInterval  string
	Market        calendar.Market
	Observer      string
	EntrySessions []market.Session

	DataDir   string
	OutDir    string
	StatePath string

	TgToken  string
	TgChatID int64

	BinanceKey    string
	BinanceSecret string

	LogLevel string

	Params core.Params
}

func Load() Config {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	v.SetDefault("UNDERLYING", "TSLA")
	v.SetDefault("BULL", "TSLL")
	v.SetDefault("BULL_LEVERAGE", "2")
	v.SetDefault("BEAR", "TSLQ")
	v.SetDefault("BEAR_LEVERAGE", "-2")
	v.SetDefault("INTERVAL", "1h")
	v.SetDefault("TICK_INTERVAL", "1h")
	v.SetDefault("MARKET", "US")
	v.SetDefault("OBSERVER_TZ", "Asia/Seoul")
	v.SetDefault("ENTRY_SESSIONS", "REGULAR")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("OUT_DIR", "out")
	v.SetDefault("STATE_PATH", "state/position.json")
	v.SetDefault("LOG_LEVEL", "info")

	p := core.DefaultParams()
	v.SetDefault("CAPITAL", p.Capital)
	v.SetDefault("STOP_LOSS_RATE_1X", p.StopLossRate1x)
	v.SetDefault("STOP_LOSS_RATE_2X", p.StopLossRate2x)
	v.SetDefault("TAKE_PROFIT_RATE", p.TakeProfitRate)
	v.SetDefault("LONG_MAX_HOLD_DAYS", p.LongMaxHoldDays)
	v.SetDefault("SHORT_MAX_HOLD_DAYS", p.ShortMaxHoldDays)
	v.SetDefault("COOLDOWN_DAYS", p.CooldownDays)
	v.SetDefault("FORCE_CLOSE_COOLDOWN_DAYS", p.ForceCloseCooldownDays)
	v.SetDefault("REVERSAL_LIMIT", p.ReversalLimit)
	v.SetDefault("REVERSE_RISK_FACTOR", p.ReverseRiskFactor)
	v.SetDefault("REVERSE_TRIGGER", p.ReverseTrigger)
	v.SetDefault("FEE_RATE", p.FeeRate)
	v.SetDefault("MIN_NOTIONAL", p.MinNotional)
	v.SetDefault("MAX_DRAWDOWN", p.MaxDrawdown)

	return Config{
		Underlying:    v.GetString("UNDERLYING"),
		Bull:          v.GetString("BULL"),
		BullLeverage:  v.GetString("BULL_LEVERAGE"),
		Bear:          v.GetString("BEAR"),
		BearLeverage:  v.GetString("BEAR_LEVERAGE"),
		Interval:      v.GetString("INTERVAL"),
		TickInterval:  v.GetString("TICK_INTERVAL"),
		Market:        calendar.Market(v.GetString("MARKET")),
		Observer:      v.GetString("OBSERVER_TZ"),
		EntrySessions: parseSessions(v.GetString("ENTRY_SESSIONS")),
		DataDir:       v.GetString("DATA_DIR"),
		OutDir:        v.GetString("OUT_DIR"),
		StatePath:     v.GetString("STATE_PATH"),
		TgToken:       v.GetString("TG_TOKEN"),
		TgChatID:      v.GetInt64("TG_CHAT_ID"),
		BinanceKey:    v.GetString("BINANCE_API_KEY"),
		BinanceSecret: v.GetString("BINANCE_API_SECRET"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Params: core.Params{
			Capital:                v.GetFloat64("CAPITAL"),
			StopLossRate1x:         v.GetFloat64("STOP_LOSS_RATE_1X"),
			StopLossRate2x:         v.GetFloat64("STOP_LOSS_RATE_2X"),
			TakeProfitRate:         v.GetFloat64("TAKE_PROFIT_RATE"),
			LongMaxHoldDays:        v.GetInt("LONG_MAX_HOLD_DAYS"),
			ShortMaxHoldDays:       v.GetInt("SHORT_MAX_HOLD_DAYS"),
			CooldownDays:           v.GetInt("COOLDOWN_DAYS"),
			ForceCloseCooldownDays: v.GetInt("FORCE_CLOSE_COOLDOWN_DAYS"),
			ReversalLimit:          v.GetInt("REVERSAL_LIMIT"),
			ReverseRiskFactor:      v.GetFloat64("REVERSE_RISK_FACTOR"),
			ReverseTrigger:         v.GetBool("REVERSE_TRIGGER"),
			FeeRate:                v.GetFloat64("FEE_RATE"),
			MinNotional:            v.GetFloat64("MIN_NOTIONAL"),
			MaxDrawdown:            v.GetFloat64("MAX_DRAWDOWN"),
		},
	}
}

// parseSessions resolves a comma-separated session list; unknown names are
// dropped rather than failing startup.
func parseSessions(raw string) []market.Session {
	var out []market.Session
	for _, part := range strings.Split(raw, ",") {
		if s, ok := market.ParseSession(strings.ToUpper(strings.TrimSpace(part))); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []market.Session{market.Regular}
	}
	return out
}
