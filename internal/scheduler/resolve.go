package scheduler

import "github.com/me/wsrun/pkg/model"

// blockers returns the dependencies of ws that are still pending. A
// descriptor resolving to several workspaces blocks while any of them is
// pending. A workspace that depends on itself blocks on itself.
func blockers(ws *model.Workspace, includeDev bool, resolver Resolver, pending *pendingSet) []string {
	var out []string
	for _, d := range ws.DependencySet(includeDev) {
		for _, dep := range resolver.ResolveDescriptor(d) {
			if key := dep.Locator.String(); pending.has(key) {
				out = append(out, dep.DisplayName())
			}
		}
	}
	return out
}
