package agent

import (
	"context"
	"fmt"
	"time"
)

// usdToINRRate は概算の為替レート
// TODO: 為替APIから動的に取得する
const usdToINRRate = 83.1

// NewCurrencyTool はUSD→INRの概算換算ツールを作成する
func NewCurrencyTool() Tool {
	return Tool{
		Name:        "convert_currency",
		Description: "Convert a price in USD to INR (approximate conversion).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"usd_price": map[string]any{
					"type":        "number",
					"description": "Price in US dollars",
				},
			},
			"required": []string{"usd_price"},
		},
		Call: func(_ context.Context, args map[string]any) (string, error) {
			price, ok := args["usd_price"].(float64)
			if !ok {
				return "", fmt.Errorf("usd_price must be a number")
			}
			return fmt.Sprintf("₹%.2f INR", price*usdToINRRate), nil
		},
	}
}

// NewWeatherTool は指定地点の天気予報を返すツールを作成する
// 現状は固定のモック応答を返す
// TODO: 天気API（OpenWeatherMap等）に接続する
func NewWeatherTool() Tool {
	return Tool{
		Name:        "check_weather",
		Description: "Return the weather forecast for the specified location.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City or location name, e.g. 'Mumbai'",
				},
			},
			"required": []string{"location"},
		},
		Call: func(_ context.Context, args map[string]any) (string, error) {
			location, ok := args["location"].(string)
			if !ok || location == "" {
				return "", fmt.Errorf("location is required")
			}
			return fmt.Sprintf("The weather in %s is currently sunny with a temperature of 28°C.", location), nil
		},
	}
}

// NewLocalTimeTool は指定タイムゾーンの現地時刻を返すツールを作成する
func NewLocalTimeTool() Tool {
	return NewLocalTimeToolAt(time.Now)
}

// NewLocalTimeToolAt は現在時刻の取得方法を差し替え可能にしたコンストラクタ
func NewLocalTimeToolAt(now func() time.Time) Tool {
	return Tool{
		Name:        "local_time",
		Description: "Return the current local time in the specified IANA timezone (e.g. Asia/Kolkata).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name, like 'Asia/Kolkata'",
				},
			},
			"required": []string{"timezone"},
		},
		Call: func(_ context.Context, args map[string]any) (string, error) {
			zone, ok := args["timezone"].(string)
			if !ok || zone == "" {
				return "", fmt.Errorf("timezone is required")
			}
			loc, err := time.LoadLocation(zone)
			if err != nil {
				// 未知のゾーンはエラーではなく案内文として返し、モデルに言い換えさせる
				return fmt.Sprintf("Sorry, I couldn't find timezone info for %s. Please use format like 'Asia/Kolkata'.", zone), nil
			}
			return fmt.Sprintf("The current local time in %s is %s.", zone, now().In(loc).Format("2006-01-02 15:04:05")), nil
		},
	}
}
