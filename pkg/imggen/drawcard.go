// Package imggen 图片生成模块
package imggen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// DrawCard 单期抽奖卡片数据
type DrawCard struct {
	Title       string
	Kind        string // traditional / strategic
	Price       string // 已格式化的价格，如 "10 credits"
	Prize       string
	Countdown   string // HH:MM:SS，已开奖时为空
	WinningStr  string // 未开奖时为空
	Tickets     int
	Active      bool
	GeneratedAt time.Time
}

// 颜色定义
var (
	bgColor      = color.RGBA{25, 25, 35, 255}    // 深色背景
	cardColor    = color.RGBA{35, 35, 50, 255}    // 卡片背景
	goldColor    = color.RGBA{255, 215, 0, 255}   // 金色
	textColor    = color.RGBA{255, 255, 255, 255} // 白色文字
	subTextColor = color.RGBA{180, 180, 180, 255} // 灰色文字
	accentColor  = color.RGBA{138, 43, 226, 255}  // 紫色强调
	closedColor  = color.RGBA{114, 30, 60, 255}
	openColor    = color.RGBA{30, 60, 114, 255}
)

const (
	cardWidth  = 600
	cardHeight = 340
)

var (
	fontMu   sync.RWMutex
	fontData *truetype.Font
)

// LoadFont 加载 TTF 字体，中文标题需要；未加载时使用内置点阵字体
func LoadFont(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体失败: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return fmt.Errorf("解析字体失败: %w", err)
	}

	fontMu.Lock()
	fontData = f
	fontMu.Unlock()
	return nil
}

func face(size float64) font.Face {
	fontMu.RLock()
	defer fontMu.RUnlock()
	if fontData == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(fontData, &truetype.Options{Size: size})
}

// GenerateDrawCard 生成抽奖卡片 PNG
func GenerateDrawCard(card DrawCard) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	drawBackground(dc, card.Active)
	drawTitle(dc, card)
	drawBody(dc, card)
	drawFooter(dc, card.GeneratedAt)

	return exportPNG(dc)
}

// drawBackground 绘制纵向渐变背景
func drawBackground(dc *gg.Context, active bool) {
	start := closedColor
	if active {
		start = openColor
	}

	for y := 0; y < cardHeight; y++ {
		t := float64(y) / float64(cardHeight)
		r := uint8(float64(start.R)*(1-t) + float64(bgColor.R)*t)
		g := uint8(float64(start.G)*(1-t) + float64(bgColor.G)*t)
		b := uint8(float64(start.B)*(1-t) + float64(bgColor.B)*t)
		dc.SetColor(color.RGBA{r, g, b, 255})
		dc.DrawRectangle(0, float64(y), cardWidth, 1)
		dc.Fill()
	}
}

func drawTitle(dc *gg.Context, card DrawCard) {
	dc.SetFontFace(face(28))
	dc.SetColor(textColor)
	dc.DrawStringAnchored(card.Title, cardWidth/2, 45, 0.5, 0.5)

	dc.SetFontFace(face(16))
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored(card.Kind, cardWidth/2, 80, 0.5, 0.5)

	dc.SetColor(accentColor)
	dc.SetLineWidth(2)
	dc.DrawLine(50, 100, cardWidth-50, 100)
	dc.Stroke()
}

func drawBody(dc *gg.Context, card DrawCard) {
	dc.SetColor(color.RGBA{cardColor.R, cardColor.G, cardColor.B, 200})
	dc.DrawRoundedRectangle(20, 115, cardWidth-40, 170, 10)
	dc.Fill()

	dc.SetFontFace(face(18))
	rows := [][2]string{
		{"Price", card.Price},
		{"Prize", card.Prize},
		{"Tickets", fmt.Sprintf("%d", card.Tickets)},
	}
	for i, row := range rows {
		y := 145 + float64(i)*32
		dc.SetColor(subTextColor)
		dc.DrawString(row[0], 45, y)
		dc.SetColor(textColor)
		dc.DrawString(row[1], 170, y)
	}

	y := 145 + float64(len(rows))*32
	switch {
	case card.WinningStr != "":
		dc.SetColor(goldColor)
		dc.DrawString("Winning", 45, y)
		dc.DrawString(card.WinningStr, 170, y)
	case card.Countdown != "":
		dc.SetColor(goldColor)
		dc.DrawString("Ends in", 45, y)
		dc.DrawString(card.Countdown, 170, y)
	default:
		dc.SetColor(subTextColor)
		dc.DrawString("Awaiting result", 45, y)
	}
}

// drawFooter 绘制底部
func drawFooter(dc *gg.Context, generatedAt time.Time) {
	dc.SetFontFace(face(12))
	dc.SetColor(subTextColor)
	footer := fmt.Sprintf("%s | Sakura Lottery", generatedAt.Format("2006-01-02 15:04"))
	dc.DrawStringAnchored(footer, cardWidth/2, cardHeight-25, 0.5, 0.5)
}

// exportPNG 导出为 PNG
func exportPNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
