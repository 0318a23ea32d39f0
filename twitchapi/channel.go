package twitchapi

import (
	"context"
	"sort"
)

// settableContentLabels are the content classification labels a broadcaster
// may toggle through the channel API. MatureGame is derived from the category
// by the platform and rejected if sent.
var settableContentLabels = []string{
	"DebatedSocialIssuesAndPolitics",
	"DrugsIntoxication",
	"Gambling",
	"ProfanityVulgarity",
	"SexualThemes",
	"ViolentGraphic",
}

// ChannelManager pushes category and label changes for a broadcaster. It
// translates the orchestrator's desired-state view (the complete set of
// labels that should be on) into the per-label toggles the API expects:
// nil labels leave the channel's labels untouched, any non-nil slice replaces
// them, so an empty slice turns every label off.
type ChannelManager struct {
	Client *HelixClient
}

func (cm *ChannelManager) UpdateChannelInformation(ctx context.Context, userID, gameID string, labels []string) error {
	upd := ChannelUpdate{GameID: &gameID}
	if labels != nil {
		upd.ContentClassificationLabels = labelToggles(labels)
	}
	return cm.Client.ModifyChannelInformation(ctx, userID, upd)
}

// labelToggles expands a desired enabled set into explicit toggles for every
// settable label; anything not named is switched off rather than left stale.
// Unknown label ids pass through enabled so new platform labels keep working.
func labelToggles(enabled []string) []ContentClassificationLabel {
	want := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		want[id] = true
	}
	out := make([]ContentClassificationLabel, 0, len(settableContentLabels)+len(enabled))
	for _, id := range settableContentLabels {
		out = append(out, ContentClassificationLabel{ID: id, IsEnabled: want[id]})
		delete(want, id)
	}
	extras := make([]string, 0, len(want))
	for id := range want {
		extras = append(extras, id)
	}
	sort.Strings(extras)
	for _, id := range extras {
		out = append(out, ContentClassificationLabel{ID: id, IsEnabled: true})
	}
	return out
}
