package sourcexml

import "github.com/algiers/cratebridge/internal/collection"

// buildTree converts the decoded playlist root node into the collection
// tree. The source format's outer NODE is a synthetic, unnamed root
// (conventionally "$ROOT"); its direct children become the Collection's
// Roots so callers never have to special-case that wrapper.
func buildTree(root rawNode, pathIndex map[string]string, issues *[]Issue) []*collection.Node {
	out := make([]*collection.Node, 0, len(root.Subnodes))
	for _, child := range root.Subnodes {
		out = append(out, buildNode(child, pathIndex, issues))
	}
	return out
}

func buildNode(rn rawNode, pathIndex map[string]string, issues *[]Issue) *collection.Node {
	switch {
	case rn.Smart != nil:
		n := collection.NewNode(collection.NodeKindSmartlist, rn.Name)
		n.SmartQuery = rn.Smart.Query
		n.Empty = true
		return n
	case rn.Type == "FOLDER" || len(rn.Subnodes) > 0:
		n := collection.NewNode(collection.NodeKindFolder, rn.Name)
		for _, child := range rn.Subnodes {
			n.Children = append(n.Children, buildNode(child, pathIndex, issues))
		}
		return n
	default:
		n := collection.NewNode(collection.NodeKindPlaylist, rn.Name)
		if rn.Playlist != nil {
			for _, item := range rn.Playlist.Tracks {
				key := canonicalKey(normalizeDirSeparators(item.PrimaryKey.Key))
				fp, ok := pathIndex[key]
				if !ok {
					*issues = append(*issues, Issue{
						Kind:    IssueUnresolvedReference,
						Message: "playlist " + rn.Name + ": unresolved entry " + item.PrimaryKey.Key,
					})
					continue
				}
				n.TrackFingerprints = append(n.TrackFingerprints, fp)
			}
		}
		n.Empty = len(n.TrackFingerprints) == 0
		if n.Empty {
			*issues = append(*issues, Issue{Kind: IssuePlaylistEmpty, Message: "playlist " + rn.Name + " has no resolvable entries"})
		}
		return n
	}
}
