package router

import "strings"

const (
	// HomePath is where logout sends the user
	HomePath = "/"

	// LoginPath is where unauthenticated users are redirected
	LoginPath = "/login"

	RoleJobseeker = "jobseeker"
	RoleEmployer  = "employer"
)

// Route is one entry of the client route table
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	Role         string // required group, empty for any
}

// Routes returns the job board route table
func Routes() []Route {
	return []Route{
		{Name: "home", Path: "/"},
		{Name: "messages", Path: "/messages"},
		{Name: "login", Path: "/login"},
		{Name: "systemReviews", Path: "/system-reviews"},
		{Name: "signup", Path: "/signup"},
		{Name: "jobseekerDetails", Path: "/jobseeker/details"},
		{Name: "jobseekerApplications", Path: "/jobseeker/applications", RequiresAuth: true, Role: RoleJobseeker},
		{Name: "employerDetails", Path: "/employer/details"},
		{Name: "employerDisplayJobPostsView", Path: "/employer/jobposts"},
		{Name: "employerCreateJobPostView", Path: "/employer/create-jobpost"},
		{Name: "JobApplicationsView", Path: "/employer/job/:id/applications", RequiresAuth: true, Role: RoleEmployer},
		{Name: "EmployerApplicationsOverview", Path: "/employer/applications", RequiresAuth: true, Role: RoleEmployer},
		{Name: "appointments", Path: "/appointments"},
		{Name: "employerBookAppointment", Path: "/employer/book-appointment", RequiresAuth: true, Role: RoleEmployer},
	}
}

// Match is a resolved route with its path parameters
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Resolve finds the first route matching path. Query strings and fragments are ignored.
func Resolve(routes []Route, path string) (Match, bool) {
	clean := normalize(path)
	segments := split(clean)

	for _, route := range routes {
		if params, ok := matchSegments(split(route.Path), segments); ok {
			return Match{Route: route, Path: clean, Params: params}, true
		}
	}
	return Match{}, false
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}

	params := map[string]string{}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segments[i] == "" {
				return nil, false
			}
			params[p[1:]] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}
