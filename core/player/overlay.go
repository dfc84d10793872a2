package player

import "fader/model"

// Marker is a comment projected onto the 0..1 waveform axis.
type Marker struct {
	CommentID int64
	Position  float64 // 0..1 along the waveform
	Timestamp float64 // seconds into the audio
	Resolved  bool
}

// TimeToPosition maps an absolute time to a 0..1 waveform position. It
// reports false while the duration is unknown or zero, in which case nothing
// may be rendered.
func TimeToPosition(seconds, duration float64) (float64, bool) {
	if duration <= 0 {
		return 0, false
	}
	r := seconds / duration
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r, true
}

// PositionToTime maps a 0..1 waveform position back to absolute time.
func PositionToTime(r, duration float64) float64 {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r * duration
}

// TimelineComments filters a comment set to the entries that belong on the
// waveform: top-level comments carrying a timestamp. Replies and general
// comments only appear in the linear list.
func TimelineComments(comments []*model.Comment) []*model.Comment {
	out := make([]*model.Comment, 0, len(comments))
	for _, c := range comments {
		if c.ParentID == nil && c.Timestamp != nil {
			out = append(out, c)
		}
	}
	return out
}

// ProjectMarkers places the timeline comments onto the waveform axis. An
// unknown duration yields no markers.
func ProjectMarkers(comments []*model.Comment, duration float64) []Marker {
	if duration <= 0 {
		return nil
	}
	timeline := TimelineComments(comments)
	markers := make([]Marker, 0, len(timeline))
	for _, c := range timeline {
		pos, ok := TimeToPosition(*c.Timestamp, duration)
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			CommentID: c.ID,
			Position:  pos,
			Timestamp: *c.Timestamp,
			Resolved:  c.Resolved(),
		})
	}
	return markers
}
