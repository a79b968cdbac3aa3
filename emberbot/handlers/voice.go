package handlers

import "sync"

// VoicePresence is one user currently in a voice channel.
type VoicePresence struct {
	UserID    string
	Username  string
	ChannelID string
}

// VoiceTracker keeps the set of users currently in voice, fed by voice
// state updates and drained each minute by the voice ticker.
type VoiceTracker struct {
	mu      sync.RWMutex
	present map[string]VoicePresence
}

func NewVoiceTracker() *VoiceTracker {
	return &VoiceTracker{present: make(map[string]VoicePresence)}
}

func (vt *VoiceTracker) Join(userID, username, channelID string) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	vt.present[userID] = VoicePresence{
		UserID:    userID,
		Username:  username,
		ChannelID: channelID,
	}
}

func (vt *VoiceTracker) Leave(userID string) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	delete(vt.present, userID)
}

func (vt *VoiceTracker) Present() []VoicePresence {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	out := make([]VoicePresence, 0, len(vt.present))
	for _, p := range vt.present {
		out = append(out, p)
	}
	return out
}

func (vt *VoiceTracker) Count() int {
	vt.mu.RLock()
	defer vt.mu.RUnlock()
	return len(vt.present)
}
