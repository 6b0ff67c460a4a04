package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/irrelevantclub/toolkit-backend/internal/models"
)

// Branding is the product copy injected into every email.
type Branding struct {
	ProductName  string
	SiteURL      string
	SecretPhrase string
}

// Rendered is a ready-to-send email body.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	User     *models.User
	Branding Branding
	Year     string
	At       string
}

const welcomeSubject = "¡Bienvenido al arsenal de herramientas tech de Irrelevant!"

var welcomeText = texttemplate.Must(texttemplate.New("welcome.txt").Parse(`¡Hola {{.User.Name}}!

Gracias por unirte a nuestro arsenal de herramientas tech. Estamos emocionados de tenerte como parte de la comunidad.

Accede a todas las herramientas, guías y recursos que hemos preparado para ti. Recuerda que puedes ingresar con la frase secreta: "{{.Branding.SecretPhrase}}".

Si tienes alguna pregunta, no dudes en contactarnos.

¡A construir proyectos increíbles!
Equipo Irrelevant
`))

var welcomeHTML = htmltemplate.Must(htmltemplate.New("welcome.html").Parse(`<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; color: #333; line-height: 1.6; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(to right, #9C6BFF, #A566FF); color: white; padding: 20px; border-radius: 10px 10px 0 0; }
      .content { background-color: #f9f9f9; padding: 20px; border-radius: 0 0 10px 10px; }
      .button { display: inline-block; background: linear-gradient(to right, #9C6BFF, #A566FF); color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
      .footer { margin-top: 20px; font-size: 12px; color: #888; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>¡Bienvenido a {{.Branding.ProductName}}!</h1></div>
      <div class="content">
        <p>¡Hola <strong>{{.User.Name}}</strong>!</p>
        <p>Gracias por unirte a nuestro arsenal de herramientas tech. Estamos emocionados de tenerte como parte de la comunidad.</p>
        <p>Accede a todas las herramientas, guías y recursos que hemos preparado para ti. Recuerda que puedes ingresar con la frase secreta: <strong>"{{.Branding.SecretPhrase}}"</strong>.</p>
        <a href="{{.Branding.SiteURL}}" class="button">Explorar Herramientas</a>
        <p>Si tienes alguna pregunta, no dudes en contactarnos.</p>
        <p>¡A construir proyectos increíbles!<br><strong>Equipo Irrelevant</strong></p>
      </div>
      <div class="footer"><p>© {{.Year}} {{.Branding.ProductName}}. Todos los derechos reservados.</p></div>
    </div>
  </body>
</html>
`))

var adminText = texttemplate.Must(texttemplate.New("admin.txt").Parse(`Nuevo registro en {{.Branding.ProductName}}

Nombre: {{.User.Name}}
Email: {{.User.Email}}
País: {{.User.Country}}
Tipo: {{.User.UserType}}
{{- if .User.UserType.IsCompany}}
Empresa: {{.User.Company}}
Necesidades de automatización: {{.User.AutomationNeeds}}
{{- else}}
Área de interés: {{.User.InterestArea}}
Herramientas: {{.User.ToolsUsed}}
Proyecto: {{.User.ProjectDescription}}
{{- end}}
Fecha: {{.At}}
ID: {{.User.ID}}
`))

var adminHTML = htmltemplate.Must(htmltemplate.New("admin.html").Parse(`<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Nuevo registro en {{.Branding.ProductName}}</h2>
    <table cellpadding="4">
      <tr><td><strong>Nombre</strong></td><td>{{.User.Name}}</td></tr>
      <tr><td><strong>Email</strong></td><td>{{.User.Email}}</td></tr>
      <tr><td><strong>País</strong></td><td>{{.User.Country}}</td></tr>
      <tr><td><strong>Tipo</strong></td><td>{{.User.UserType}}</td></tr>
      {{- if .User.UserType.IsCompany}}
      <tr><td><strong>Empresa</strong></td><td>{{.User.Company}}</td></tr>
      <tr><td><strong>Necesidades de automatización</strong></td><td>{{.User.AutomationNeeds}}</td></tr>
      {{- else}}
      <tr><td><strong>Área de interés</strong></td><td>{{.User.InterestArea}}</td></tr>
      <tr><td><strong>Herramientas</strong></td><td>{{.User.ToolsUsed}}</td></tr>
      <tr><td><strong>Proyecto</strong></td><td>{{.User.ProjectDescription}}</td></tr>
      {{- end}}
      <tr><td><strong>Fecha</strong></td><td>{{.At}}</td></tr>
      <tr><td><strong>ID</strong></td><td>{{.User.ID}}</td></tr>
    </table>
  </body>
</html>
`))

// RenderWelcome builds the registrant's welcome email.
func RenderWelcome(u *models.User, b Branding, at time.Time) (Rendered, error) {
	return render(welcomeSubject, welcomeText, welcomeHTML, newTemplateData(u, b, at))
}

// RenderAdminAlert builds the operator notification for a new registration.
func RenderAdminAlert(u *models.User, b Branding, at time.Time) (Rendered, error) {
	subject := "Nuevo registro: " + u.Name + " (" + string(u.UserType) + ")"
	return render(subject, adminText, adminHTML, newTemplateData(u, b, at))
}

func newTemplateData(u *models.User, b Branding, at time.Time) templateData {
	at = at.UTC()
	return templateData{
		User:     u,
		Branding: b,
		Year:     strconv.Itoa(at.Year()),
		At:       at.Format("2006-01-02 15:04 MST"),
	}
}

func render(subject string, text *texttemplate.Template, html *htmltemplate.Template, data templateData) (Rendered, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return Rendered{}, err
	}
	if err := html.Execute(&hb, data); err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: subject, Text: tb.String(), HTML: hb.String()}, nil
}
