package fake

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/crudcheck/internal/browser"
	"github.com/ternarybob/crudcheck/internal/interfaces"
	"github.com/ternarybob/crudcheck/internal/models"
)

// View names reported by Page.View
const (
	ViewBlank    = "blank"
	ViewLogin    = "login"
	ViewList     = "list"
	ViewDetail   = "detail"
	ViewForm     = "form"
	ViewSaving   = "saving"
	ViewNotFound = "not-found"
)

// Page is one browser tab on the fake application
type Page struct {
	backend *Backend
	baseURL string

	mu           sync.Mutex
	view         string
	path         string
	loggedIn     bool
	selected     string
	editing      string
	inputs       map[string]string
	errorText    string
	mountWait    int
	populateWait int
	navigations  int
	idleWaits    int
	actions      []string
	closed       bool
}

var (
	_ interfaces.BrowserSession = (*Page)(nil)
	_ interfaces.PageInspector  = (*Page)(nil)
)

// NewPage opens a blank tab
func (b *Backend) NewPage(baseURL string) *Page {
	return &Page{
		backend: b,
		baseURL: strings.TrimRight(baseURL, "/"),
		view:    ViewBlank,
		path:    "about:blank",
		inputs:  make(map[string]string),
	}
}

// View returns the current view name
func (p *Page) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Navigations counts Navigate calls
func (p *Page) Navigations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.navigations
}

// IdleWaits counts WaitForNetworkIdle calls
func (p *Page) IdleWaits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleWaits
}

// Actions lists the application actions triggered by clicks, in order
func (p *Page) Actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

// LoggedIn reports whether the tab holds a session
func (p *Page) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

// SignIn puts the tab on the contact list as if login had succeeded
func (p *Page) SignIn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loggedIn = true
	p.transition(ViewList, "/contactList")
}

// Open shows the details of the contact with id
func (p *Page) Open(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = id
	p.transition(ViewDetail, "/contactDetails")
}

// OpenAddForm shows an empty contact form
func (p *Page) OpenAddForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startForm("")
}

func (p *Page) transition(view, path string) {
	p.view = view
	p.path = path
	p.errorText = ""
	p.mountWait = p.backend.quirks.MountDelay
}

func (p *Page) startForm(editing string) {
	p.editing = editing
	p.inputs = make(map[string]string)
	path := "/addContact"
	if editing != "" {
		path = "/editContact"
		if c, ok := p.backend.find(editing); ok {
			p.inputs = contactInputs(c.Contact)
		}
		p.populateWait = p.backend.quirks.PopulateDelay
	}
	p.transition(ViewForm, path)
}

// Navigate implements interfaces.Browser
func (p *Page) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := browser.ResolveURL(p.baseURL, target)
	if err != nil {
		return err
	}
	u, err := url.Parse(resolved)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page closed")
	}
	p.navigations++

	path := u.Path
	if path == "" {
		path = "/"
	}
	if resolved == "about:blank" {
		p.transition(ViewBlank, "about:blank")
		return nil
	}

	switch {
	case !p.loggedIn && (path == "/" || path == "/contactList" || path == "/addContact" || path == "/contactDetails" || path == "/editContact"):
		p.transition(ViewLogin, "/")
	case path == "/" || path == "/contactList":
		p.transition(ViewList, path)
	case path == "/addContact":
		p.startForm("")
	case path == "/contactDetails" && p.selected != "":
		p.transition(ViewDetail, path)
	case path == "/contactDetails":
		p.transition(ViewList, "/contactList")
	default:
		p.transition(ViewNotFound, path)
	}
	return nil
}

// WaitForNetworkIdle implements interfaces.Browser
func (p *Page) WaitForNetworkIdle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleWaits++
	return ctx.Err()
}

// Query implements interfaces.Browser
func (p *Page) Query(ctx context.Context, loc models.Locator) ([]models.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sel, err := p.match(p.render(true), loc)
	if err != nil {
		return nil, err
	}

	states := make([]models.ElementState, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		states = append(states, models.ElementState{
			Index:   i,
			Visible: visible(s),
			Text:    strings.Join(strings.Fields(s.Text()), " "),
			Value:   s.AttrOr("value", ""),
		})
	})
	return states, nil
}

func (p *Page) element(loc models.Locator, index int) (*goquery.Selection, error) {
	sel, err := p.match(p.render(false), loc)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= sel.Length() {
		return nil, fmt.Errorf("%s[%d] is no longer in the page (%d matches)", loc, index, sel.Length())
	}
	el := sel.Eq(index)
	if !visible(el) {
		return nil, fmt.Errorf("%s[%d] is not visible", loc, index)
	}
	return el, nil
}

// Click implements interfaces.Browser
func (p *Page) Click(ctx context.Context, loc models.Locator, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	el, err := p.element(loc, index)
	if err != nil {
		return err
	}
	target := el.Closest("[data-action]")
	if target.Length() == 0 {
		return nil
	}
	action := target.AttrOr("data-action", "")
	p.actions = append(p.actions, action)
	p.dispatch(action)
	return nil
}

// Fill implements interfaces.Browser
func (p *Page) Fill(ctx context.Context, loc models.Locator, index int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	el, err := p.element(loc, index)
	if err != nil {
		return err
	}
	if goquery.NodeName(el) != "input" {
		return fmt.Errorf("%s[%d] is a <%s>, not an input", loc, index, goquery.NodeName(el))
	}
	id := el.AttrOr("id", "")
	if id == "" {
		return fmt.Errorf("%s[%d] has no id", loc, index)
	}
	p.inputs[id] = value
	return nil
}

// CurrentURL implements interfaces.Browser
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "about:blank" {
		return p.path, nil
	}
	return p.baseURL + p.path, nil
}

// HTML implements interfaces.PageInspector
func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render(false), nil
}

// Screenshot implements interfaces.PageInspector
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// Close implements interfaces.BrowserSession
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Page) dispatch(action string) {
	name, arg, _ := strings.Cut(action, ":")
	switch name {
	case "login":
		if p.backend.checkLogin(p.inputs["email"], p.inputs["password"]) {
			p.loggedIn = true
			p.inputs = make(map[string]string)
			p.transition(ViewList, "/contactList")
			return
		}
		p.errorText = LoginErrorText
	case "logout":
		p.loggedIn = false
		p.inputs = make(map[string]string)
		p.transition(ViewLogin, "/")
	case "add":
		p.startForm("")
	case "open":
		p.selected = arg
		p.transition(ViewDetail, "/contactDetails")
	case "edit":
		p.startForm(p.selected)
	case "delete":
		// window.confirm is accepted by the browser driver
		p.backend.remove(p.selected)
		p.selected = ""
		p.transition(ViewList, "/contactList")
	case "return":
		p.transition(ViewList, "/contactList")
	case "cancel":
		if p.editing != "" {
			p.transition(ViewDetail, "/contactDetails")
		} else {
			p.transition(ViewList, "/contactList")
		}
	case "save":
		stored, err := p.backend.save(p.editing, inputsContact(p.inputs))
		if err != nil {
			p.errorText = err.Error()
			return
		}
		p.selected = stored.ID
		p.editing = ""
		if p.backend.quirks.SilentSave {
			p.transition(ViewSaving, p.path)
			return
		}
		p.transition(ViewDetail, "/contactDetails")
	}
}

// match resolves loc against rendered markup the way the page script does
func (p *Page) match(markup string, loc models.Locator) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	kind, expr, needle := browser.Expression(loc)
	switch kind {
	case "css":
		return doc.Find(expr), nil
	case "text":
		return doc.Find(expr).FilterFunction(func(i int, s *goquery.Selection) bool {
			if !strings.Contains(browser.NormalizeText(s.Text()), needle) {
				return false
			}
			if expr != "*" {
				return true
			}
			inner := false
			s.Children().EachWithBreak(func(i int, c *goquery.Selection) bool {
				inner = strings.Contains(browser.NormalizeText(c.Text()), needle)
				return !inner
			})
			return !inner
		}), nil
	default:
		return nil, fmt.Errorf("fake page does not evaluate %s locators", kind)
	}
}

func visible(s *goquery.Selection) bool {
	for n := s; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		if strings.Contains(strings.ReplaceAll(n.AttrOr("style", ""), " ", ""), "display:none") {
			return false
		}
	}
	return true
}

// render returns the markup for the current view; consume advances mount delays
func (p *Page) render(consume bool) string {
	if p.mountWait > 0 {
		if consume {
			p.mountWait--
		}
		return `<html><head><title>Contact List App</title></head><body><div class="loading"></div></body></html>`
	}

	var body string
	switch p.view {
	case ViewLogin:
		body = p.renderLogin()
	case ViewList:
		body = p.renderList()
	case ViewDetail:
		body = p.renderDetail()
	case ViewForm:
		body = p.renderForm(consume)
	case ViewSaving:
		body = `<div class="spinner"></div>`
	case ViewNotFound:
		body = `<h1>Not Found</h1>`
	default:
		body = ``
	}
	return `<html><head><title>Contact List App</title></head><body>` + body + `</body></html>`
}

func (p *Page) errorSpan() string {
	if p.errorText == "" {
		return `<span id="error"></span>`
	}
	return "<span id=\"error\">\n    " + html.EscapeString(p.errorText) + "\n  </span>"
}

func (p *Page) renderLogin() string {
	return `<h1>Contact List App</h1>
<form>
  <p><input id="email" placeholder="Email" value="` + attr(p.inputs["email"]) + `"></p>
  <p><input id="password" type="password" placeholder="Password" value="` + attr(p.inputs["password"]) + `"></p>
  <p>` + p.errorSpan() + `</p>
  <button id="submit" type="submit" data-action="login">Submit</button>
</form>
<p>Not yet a user? Click here to sign up!</p>
<button id="signup" data-action="signup">Sign up</button>`
}

func (p *Page) header() string {
	return `<header><button id="logout" class="logout" data-action="logout">Logout</button></header>`
}

func (p *Page) renderList() string {
	var b strings.Builder
	b.WriteString(p.header())
	b.WriteString("\n<h1>Contact List</h1>\n")
	if !p.backend.quirks.NoHelperText {
		b.WriteString("<p>Click on any contact to view the Contact Details</p>\n")
	}

	contacts := p.backend.Contacts()
	if p.backend.quirks.LegacyMarkup {
		b.WriteString(`<div role="button" class="btn" data-action="add">Add Contact</div>` + "\n")
		b.WriteString(`<div role="table" class="contacts">` + "\n")
		for _, c := range contacts {
			fmt.Fprintf(&b, `<div role="row" data-action="open:%s"><span>%s</span> <span>%s</span> <span>%s</span></div>`+"\n",
				c.ID, text(c.DisplayName()), text(c.DateOfBirth), text(c.Email))
		}
		b.WriteString("</div>")
		return b.String()
	}

	b.WriteString(`<button id="add-contact" data-action="add">Add a New Contact</button>` + "\n")
	b.WriteString(`<table id="myTable" class="contactTable"><thead><tr><th>Name</th><th>Birthdate</th><th>Email</th><th>Phone</th><th>Address</th></tr></thead><tbody>` + "\n")
	for _, c := range contacts {
		fmt.Fprintf(&b, "<tr class=\"contactTableBodyRow\" data-action=\"open:%s\">\n  <td>%s</td>\n  <td>%s</td>\n  <td>%s</td>\n  <td>%s</td>\n  <td>%s</td>\n</tr>\n",
			c.ID, text(c.DisplayName()), text(c.DateOfBirth), text(c.Email), text(c.Phone),
			text(strings.Join(strings.Fields(c.Address+" "+c.City+" "+c.State+" "+c.PostalCode), " ")))
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func (p *Page) renderDetail() string {
	c, ok := p.backend.find(p.selected)
	if !ok {
		return p.header() + `<h1>Contact Details</h1><button id="return" data-action="return">Return to Contact List</button>`
	}
	return p.header() + `
<h1>Contact Details</h1>
<button id="edit" data-action="edit">Edit Contact</button>
<button id="delete" data-action="delete">Delete Contact</button>
<button id="return" data-action="return">Return to Contact List</button>
<form id="contactDetails">
  <p>First Name: <span id="firstName">` + text(c.FirstName) + `</span></p>
  <p>Last Name: <span id="lastName">` + text(c.LastName) + `</span></p>
  <p>Date of Birth: <span id="birthdate">` + text(c.DateOfBirth) + `</span></p>
  <p>Email: <span id="email">` + text(c.Email) + `</span></p>
  <p>Phone: <span id="phone">` + text(c.Phone) + `</span></p>
</form>`
}

func (p *Page) renderForm(consume bool) string {
	values := p.inputs
	if p.populateWait > 0 {
		if consume {
			p.populateWait--
		}
		values = map[string]string{}
	}

	title := "Add Contact"
	if p.editing != "" {
		title = "Edit Contact"
	}

	var b strings.Builder
	b.WriteString(p.header())
	fmt.Fprintf(&b, "\n<h1>%s</h1>\n<form id=\"contact-form\">\n", title)
	for _, f := range formInputs {
		fmt.Fprintf(&b, `  <p><input id="%s" placeholder="%s" value="%s"></p>`+"\n", f.id, f.placeholder, attr(values[f.id]))
	}
	b.WriteString("  <p>" + p.errorSpan() + "</p>\n")
	b.WriteString(`  <button id="submit" type="submit" data-action="save">Submit</button>` + "\n")
	b.WriteString(`  <button id="cancel" data-action="cancel">Cancel</button>` + "\n</form>")
	return b.String()
}

var formInputs = []struct{ id, placeholder string }{
	{"firstName", "First Name"},
	{"lastName", "Last Name"},
	{"birthdate", "yyyy-MM-dd"},
	{"email", "example@email.com"},
	{"phone", "8005551234"},
	{"street1", "Address 1"},
	{"street2", "Address 2"},
	{"city", "City"},
	{"stateProvince", "State or Province"},
	{"postalCode", "Postal Code"},
	{"country", "Country"},
}

func contactInputs(c models.Contact) map[string]string {
	return map[string]string{
		"firstName":     c.FirstName,
		"lastName":      c.LastName,
		"birthdate":     c.DateOfBirth,
		"email":         c.Email,
		"phone":         c.Phone,
		"street1":       c.Address,
		"city":          c.City,
		"stateProvince": c.State,
		"postalCode":    c.PostalCode,
	}
}

func inputsContact(in map[string]string) models.Contact {
	return models.Contact{
		FirstName:   in["firstName"],
		LastName:    in["lastName"],
		DateOfBirth: in["birthdate"],
		Email:       in["email"],
		Phone:       in["phone"],
		Address:     in["street1"],
		City:        in["city"],
		State:       in["stateProvince"],
		PostalCode:  in["postalCode"],
	}
}

func text(s string) string { return html.EscapeString(s) }

func attr(s string) string { return html.EscapeString(s) }
