package frame

// Predictor ids, matching the well-known Cleanflight/Betaflight
// blackbox field-predictor numbering.
const (
	PredictorZero         = 0
	PredictorPrevious     = 1
	PredictorStraightLine = 2
	PredictorAverage2     = 3
	PredictorMinThrottle  = 4
	PredictorMotor0       = 5
	PredictorIncrement    = 6
	PredictorHomeCoord    = 7
	Predictor1500         = 8
	PredictorVBatRef      = 9
	PredictorLastMainTime = 10
	PredictorMinMotor     = 11
)

// Predictors is the process-wide, read-only predictor registry:
// predictor id -> bound predictor function.
var Predictors = map[int]Predictor{
	PredictorZero:         predictZero,
	PredictorPrevious:     predictPrevious,
	PredictorStraightLine: predictStraightLine,
	PredictorAverage2:     predictAverage2,
	PredictorMinThrottle:  predictHeaderInt("minthrottle"),
	PredictorMotor0:       predictNamedCurrentField("motor[0]"),
	PredictorIncrement:    predictIncrement,
	PredictorHomeCoord:    predictHomeCoord,
	Predictor1500:         predictConst(1500),
	PredictorVBatRef:      predictHeaderInt("vbatref"),
	PredictorLastMainTime: predictLastMainTime,
	PredictorMinMotor:     predictHeaderInt("minmotor"),
}

// addToBaseline adds an integer baseline to raw, leaving float raws
// untouched: this format never applies a numeric predictor baseline to
// a float-encoded field. The lone float producer, EncodingFloat, is
// always bound to predictor 0 in practice.
func addToBaseline(raw Cell, baseline int64) Cell {
	if raw.Float {
		return raw
	}
	return IntCell(raw.I + baseline)
}

func predictZero(raw Cell, _ *Context) Cell {
	return addToBaseline(raw, 0)
}

func predictConst(c int64) Predictor {
	return func(raw Cell, _ *Context) Cell {
		return addToBaseline(raw, c)
	}
}

func predictPrevious(raw Cell, ctx *Context) Cell {
	prev := ctx.MainHistory[0]
	if prev == nil || ctx.FieldIndex >= len(prev.Cells) {
		return addToBaseline(raw, 0)
	}
	return addToBaseline(raw, prev.Cells[ctx.FieldIndex].I)
}

func predictStraightLine(raw Cell, ctx *Context) Cell {
	h0, h1 := ctx.MainHistory[0], ctx.MainHistory[1]
	if h0 == nil || h1 == nil || ctx.FieldIndex >= len(h0.Cells) || ctx.FieldIndex >= len(h1.Cells) {
		return predictPrevious(raw, ctx)
	}
	slope := h0.Cells[ctx.FieldIndex].I - h1.Cells[ctx.FieldIndex].I
	return addToBaseline(raw, h0.Cells[ctx.FieldIndex].I+slope)
}

func predictAverage2(raw Cell, ctx *Context) Cell {
	h0, h1 := ctx.MainHistory[0], ctx.MainHistory[1]
	if h0 == nil || h1 == nil || ctx.FieldIndex >= len(h0.Cells) || ctx.FieldIndex >= len(h1.Cells) {
		return predictPrevious(raw, ctx)
	}
	avg := (h0.Cells[ctx.FieldIndex].I + h1.Cells[ctx.FieldIndex].I) / 2
	return addToBaseline(raw, avg)
}

func predictIncrement(raw Cell, ctx *Context) Cell {
	prev := ctx.MainHistory[0]
	if prev == nil || ctx.FieldIndex >= len(prev.Cells) {
		return addToBaseline(raw, 0)
	}
	return addToBaseline(raw, prev.Cells[ctx.FieldIndex].I+1)
}

func predictHomeCoord(raw Cell, ctx *Context) Cell {
	home := ctx.LastGpsHome
	if home == nil || ctx.FieldIndex >= len(home.Cells) {
		return addToBaseline(raw, 0)
	}
	return addToBaseline(raw, home.Cells[ctx.FieldIndex].I)
}

func predictLastMainTime(raw Cell, ctx *Context) Cell {
	main := ctx.MainHistory[0]
	if main == nil {
		return addToBaseline(raw, 0)
	}
	idx, ok := ctx.IndexOfField(main.Kind, "time")
	if !ok || idx >= len(main.Cells) {
		return addToBaseline(raw, 0)
	}
	return addToBaseline(raw, main.Cells[idx].I)
}

func predictHeaderInt(name string) Predictor {
	return func(raw Cell, ctx *Context) Cell {
		return addToBaseline(raw, ctx.Headers.Int(name, 0))
	}
}

func predictNamedCurrentField(name string) Predictor {
	return func(raw Cell, ctx *Context) Cell {
		idx, ok := ctx.IndexOfField(ctx.FrameType, name)
		if !ok || idx >= len(ctx.CurrentFrame) {
			return addToBaseline(raw, 0)
		}
		return addToBaseline(raw, ctx.CurrentFrame[idx].I)
	}
}
