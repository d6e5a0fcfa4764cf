package handler

import (
	"bytes"
	"html/template"

	"jobtracker/internal/delivery/http/dto"
	"jobtracker/internal/delivery/http/middleware"
	"jobtracker/internal/session"

	"github.com/gofiber/fiber/v3"
)

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Error}}<p role="alert">That sign-in link is invalid or has expired.</p>{{end}}
<form id="login">
  <input type="email" name="email" placeholder="you@example.com" required>
  <button type="submit">Send magic link</button>
</form>
<p id="notice" role="status"></p>
<script>
document.getElementById('login').addEventListener('submit', async (e) => {
  e.preventDefault();
  const res = await fetch('/api/v1/auth/magic-link', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({email: e.target.email.value, redirect_to: '/jobs'})
  });
  const body = await res.json();
  document.getElementById('notice').textContent = body.message;
});
</script>
</body></html>`))

var jobsPage = template.Must(template.New("jobs").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Job applications</title></head>
<body>
<header><span>{{.Email}}</span> <button id="sign-out">Sign out</button></header>
<h1>Job applications</h1>
{{if .Snapshot.Loading}}<p>Loading…</p>
{{else if not .Snapshot.Records}}<p>No applications yet.</p>
{{else}}
<table>
<thead><tr><th>Title</th><th>Company</th><th>Status</th><th>Location</th><th>Source</th><th>Applied</th><th>Resume</th></tr></thead>
<tbody>
{{range .Snapshot.Records}}<tr>
  <td>{{if .JobLink}}<a href="{{.JobLink}}" rel="noopener" target="_blank">{{.JobTitle}}</a>{{else}}{{.JobTitle}}{{end}}</td>
  <td>{{with .Company}}{{.}}{{end}}</td>
  <td>{{.Status}}</td>
  <td>{{with .Location}}{{.}}{{end}}</td>
  <td>{{with .Source}}{{.}}{{end}}</td>
  <td>{{with .DateApplied}}{{.}}{{end}}</td>
  <td>{{with .ResumeURL}}<a href="{{.}}" target="_blank">Resume</a>{{end}}</td>
</tr>{{end}}
</tbody>
</table>
{{end}}
<script>
document.getElementById('sign-out').addEventListener('click', async () => {
  const res = await fetch('/api/v1/auth/sign-out', {method: 'POST'});
  const body = await res.json();
  window.location = (body.data && body.data.redirect_to) || '/login';
});
</script>
</body></html>`))

type jobsPageData struct {
	Email    string
	Snapshot dto.JobListSnapshotResponse
}

type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// RegisterRoutes adds the sign-in page. gate guards the list page.
func (h *PageHandler) RegisterRoutes(r fiber.Router, gate fiber.Handler) {
	if r == nil {
		return
	}

	r.Get("/", func(c fiber.Ctx) error {
		return c.Redirect().Status(fiber.StatusSeeOther).To("/jobs")
	})
	r.Get(session.SignInRoute, h.Login)
	r.Get("/jobs", gate, h.Jobs)
}

func (h *PageHandler) Login(c fiber.Ctx) error {
	return render(c, loginPage, map[string]any{"Error": c.Query("error") != ""})
}

func (h *PageHandler) Jobs(c fiber.Ctx) error {
	s, err := workspaceOf(c)
	if err != nil {
		return err
	}
	p, _ := middleware.Principal(c)
	return render(c, jobsPage, jobsPageData{
		Email:    p.Email,
		Snapshot: dto.FromSnapshot(s.Snapshot()),
	})
}

func render(c fiber.Ctx, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
