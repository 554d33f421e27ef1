package ffmpeg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Stream labels used inside the filter graph.
const (
	labelSourceVideo = "0:v"
	labelSourceAudio = "0:a"
	labelBackground  = "bg"
	labelForeground  = "main"
	labelComposite   = "with_main"
	LabelVideoOut    = "v"
	LabelAudioOut    = "a"
)

// Arg is one filter option. An empty Key renders the value positionally.
type Arg struct {
	Key   string
	Value string
}

// Filter is a single named ffmpeg filter with ordered options.
type Filter struct {
	Name string
	Args []Arg
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		if a.Key == "" {
			parts[i] = a.Value
		} else {
			parts[i] = a.Key + "=" + a.Value
		}
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is a linear run of filters from labelled inputs to one output label.
type Chain struct {
	Name    string
	Inputs  []string
	Filters []Filter
	Output  string
}

func (c Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[" + in + "]")
	}
	names := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		names[i] = f.String()
	}
	b.WriteString(strings.Join(names, ","))
	if c.Output != "" {
		b.WriteString("[" + c.Output + "]")
	}
	return b.String()
}

// Plan is the complete, deterministic render of one source file.
type Plan struct {
	Input      string
	Output     string
	Chains     []Chain
	VideoLabel string
	AudioLabel string // empty when the source has no audio
	Duration   float64
	Params     Parameters
}

// FilterGraph renders the chains as a -filter_complex value.
func (p Plan) FilterGraph() string {
	chains := make([]string, len(p.Chains))
	for i, c := range p.Chains {
		chains[i] = c.String()
	}
	return strings.Join(chains, ";")
}

// Chain returns the chain with the given name.
func (p Plan) Chain(name string) (Chain, bool) {
	for _, c := range p.Chains {
		if c.Name == name {
			return c, true
		}
	}
	return Chain{}, false
}

// OutputDuration is the trimmed length for a source of the given duration.
// It is not positive for sources too short to render.
func OutputDuration(params Parameters, sourceDuration float64) float64 {
	return sourceDuration - params.TrimTrailingSeconds
}

// BuildPlan lays out the background, foreground, composite and audio chains.
func BuildPlan(params Parameters, probe ProbeResult, input, output string) (Plan, error) {
	duration := OutputDuration(params, probe.Duration)
	if duration <= 0 {
		return Plan{}, fmt.Errorf("source duration %.3fs does not exceed the %.3fs trim", probe.Duration, params.TrimTrailingSeconds)
	}

	background := Chain{
		Name:   "background",
		Inputs: []string{labelSourceVideo},
		Filters: append(
			[]Filter{CropBand(params.CropBandPx)},
			append(FillCanvas(params.CanvasWidth, params.CanvasHeight), Blur(params.BlurSigma))...,
		),
		Output: labelBackground,
	}
	foreground := Chain{
		Name:   "foreground",
		Inputs: []string{labelSourceVideo},
		Filters: []Filter{
			CropBand(params.CropBandPx),
			Grain(params.NoiseStrength),
			FitCanvas(params.CanvasWidth, params.CanvasHeight),
			Shrink(params.ForegroundScale),
		},
		Output: labelForeground,
	}
	composite := Chain{
		Name:    "composite",
		Inputs:  []string{labelBackground, labelForeground},
		Filters: []Filter{CenterOverlay()},
		Output:  labelComposite,
	}
	video := Chain{
		Name:   "video",
		Inputs: []string{labelComposite},
		Filters: []Filter{
			SpeedUp(params.SpeedFactor),
			{Name: "format", Args: []Arg{{Value: "yuv444p"}}},
			{Name: "format", Args: []Arg{{Value: params.PixelFormat}}},
		},
		Output: LabelVideoOut,
	}

	plan := Plan{
		Input:      input,
		Output:     output,
		Chains:     []Chain{background, foreground, composite, video},
		VideoLabel: LabelVideoOut,
		Duration:   duration,
		Params:     params,
	}

	if probe.HasAudio {
		rate := probe.SampleRate
		if rate <= 0 {
			rate = params.DefaultSampleRate
		}
		plan.Chains = append(plan.Chains, Chain{
			Name:    "audio",
			Inputs:  []string{labelSourceAudio},
			Filters: PitchAndTempo(rate, params.PitchFactor, params.SpeedFactor),
			Output:  LabelAudioOut,
		})
		plan.AudioLabel = LabelAudioOut
	}
	return plan, nil
}

// CropBand removes band rows split evenly between top and bottom. Sources not
// taller than the band pass through uncropped.
func CropBand(band int) Filter {
	b := strconv.Itoa(band)
	return Filter{Name: "crop", Args: []Arg{
		{Value: "in_w"},
		{Value: escape("if(gt(in_h," + b + "),in_h-" + b + ",in_h)")},
		{Value: "0"},
		{Value: escape("if(gt(in_h," + b + ")," + strconv.Itoa(band/2) + ",0)")},
	}}
}

// FillCanvas over-scales to cover the canvas then center-crops to it.
func FillCanvas(width, height int) []Filter {
	w, h := strconv.Itoa(width), strconv.Itoa(height)
	return []Filter{
		{Name: "scale", Args: []Arg{{Value: w}, {Value: h}, {Key: "force_original_aspect_ratio", Value: "increase"}}},
		{Name: "crop", Args: []Arg{{Value: w}, {Value: h}}},
	}
}

// Blur applies a gaussian blur.
func Blur(sigma float64) Filter {
	return Filter{Name: "gblur", Args: []Arg{{Key: "sigma", Value: formatFloat(sigma)}}}
}

// Grain adds temporal uniform noise.
func Grain(strength int) Filter {
	return Filter{Name: "noise", Args: []Arg{
		{Key: "alls", Value: strconv.Itoa(strength)},
		{Key: "allf", Value: "t+u"},
	}}
}

// FitCanvas scales to fit inside the canvas, preserving aspect ratio.
func FitCanvas(width, height int) Filter {
	w, h := strconv.Itoa(width), strconv.Itoa(height)
	ratio := w + "/" + h
	return Filter{Name: "scale", Args: []Arg{
		{Key: "w", Value: quote("if(gte(iw/ih," + ratio + ")," + w + ",-1)")},
		{Key: "h", Value: quote("if(gte(iw/ih," + ratio + "),-1," + h + ")")},
	}}
}

// Shrink scales both dimensions by factor.
func Shrink(factor float64) Filter {
	f := formatFloat(factor)
	return Filter{Name: "scale", Args: []Arg{{Value: "iw*" + f}, {Value: "ih*" + f}}}
}

// CenterOverlay places the second input centered over the first.
func CenterOverlay() Filter {
	return Filter{Name: "overlay", Args: []Arg{
		{Value: "(main_w-overlay_w)/2"},
		{Value: "(main_h-overlay_h)/2"},
	}}
}

// SpeedUp compresses presentation timestamps by factor.
func SpeedUp(factor float64) Filter {
	return Filter{Name: "setpts", Args: []Arg{{Value: "PTS/" + formatFloat(factor)}}}
}

// PitchAndTempo relabels the sample rate to raise pitch, resamples back to
// the source rate and then applies the tempo stretch.
func PitchAndTempo(sampleRate int, pitch, speed float64) []Filter {
	rate := strconv.Itoa(sampleRate)
	return []Filter{
		{Name: "asetrate", Args: []Arg{{Value: rate + "*" + formatFloat(pitch)}}},
		{Name: "aresample", Args: []Arg{{Value: rate}}},
		{Name: "atempo", Args: []Arg{{Value: formatFloat(speed)}}},
	}
}

// escape protects commas inside an option value from the graph parser.
func escape(expr string) string {
	return strings.ReplaceAll(expr, ",", `\,`)
}

func quote(expr string) string {
	return "'" + expr + "'"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatSeconds renders a duration with millisecond precision.
func formatSeconds(v float64) string {
	return formatFloat(math.Round(v*1000) / 1000)
}
