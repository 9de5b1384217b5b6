package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	t   *testing.T
	s   *Server
	app *fiber.App
	db  *gorm.DB
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:                      "test",
		Port:                     "8000",
		JWTSecret:                "server-test-secret-at-least-32-chars",
		DBDriver:                 "sqlite",
		PostsPerPage:             10,
		IndexCacheSeconds:        20,
		MediaDir:                 t.TempDir(),
		ImageMaxUploadSizeMB:     1,
		SessionCookieName:        "yatube_session",
		SessionTTLHours:          1,
		DBConnMaxLifetimeMinutes: 5,
		AllowedOrigins:           "http://localhost:8000",
		FeatureFlags:             "image_uploads=on,index_cache=on",
	}
}

func newHarness(t *testing.T, withRedis bool, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.NewDB(t)

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	app, err := s.NewApp()
	require.NoError(t, err)
	return &harness{t: t, s: s, app: app, db: db}
}

// cookieFor returns a valid session cookie for user.
func (h *harness) cookieFor(user *models.User) *http.Cookie {
	h.t.Helper()
	token, _, err := h.s.authService.IssueToken(user)
	require.NoError(h.t, err)
	return &http.Cookie{Name: h.s.config.SessionCookieName, Value: token}
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) (*http.Response, string) {
	h.t.Helper()
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) get(target string, cookie *http.Cookie) (*http.Response, string) {
	return h.do(httptest.NewRequest(http.MethodGet, target, nil), cookie)
}

// csrfCookie fetches a fresh CSRF token cookie the way a browser would.
func (h *harness) csrfCookie() *http.Cookie {
	h.t.Helper()
	resp, _ := h.get(loginPath, nil)
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	h.t.Fatal("no csrf cookie issued")
	return nil
}

// postForm submits form with a valid CSRF token attached.
func (h *harness) postForm(target string, form url.Values, cookie *http.Cookie) (*http.Response, string) {
	token := h.csrfCookie()
	signed := url.Values{csrfField: {token.Value}}
	for k, v := range form {
		signed[k] = v
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(signed.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return h.do(req, cookie, token)
}

func usesTemplate(t *testing.T, body, name string) {
	t.Helper()
	assert.Contains(t, body, `data-template="`+name+`"`)
}

func TestPublicPagesRender(t *testing.T) {
	h := newHarness(t, false)
	author := testutil.MakeUser(t, h.db, "leo")
	group := testutil.MakeGroup(t, h.db, "tolstoy")
	post := testutil.MakePost(t, h.db, author, testutil.InGroup(group), testutil.WithText("War and Peace"))

	tests := []struct {
		path      string
		template  string
		showsPost bool
	}{
		{"/", "posts/index", true},
		{"/group/tolstoy/", "posts/group_list", true},
		{"/group/tolstoy", "posts/group_list", true},
		{"/profile/leo/", "posts/profile", true},
		{postURL(post.ID), "posts/post_detail", true},
		{"/auth/login/", "users/login", false},
		{"/auth/signup/", "users/signup", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := h.get(tt.path, nil)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			usesTemplate(t, body, tt.template)
			if tt.showsPost {
				assert.Contains(t, body, "War and Peace")
			}
		})
	}
}

func TestLoginRequiredRedirects(t *testing.T) {
	h := newHarness(t, false)
	author := testutil.MakeUser(t, h.db, "leo")
	post := testutil.MakePost(t, h.db, author)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodGet, "/follow/"},
		{http.MethodGet, "/profile/leo/follow/"},
		{http.MethodGet, postURL(post.ID) + "edit/"},
		{http.MethodPost, postURL(post.ID) + "comment/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var resp *http.Response
			if tt.method == http.MethodPost {
				resp, _ = h.postForm(tt.path, url.Values{"text": {"hello"}}, nil)
			} else {
				resp, _ = h.get(tt.path, nil)
			}
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, "/auth/login/?next="+tt.path, resp.Header.Get(fiber.HeaderLocation))
		})
	}
}

func TestUnknownPagesRenderNotFound(t *testing.T) {
	h := newHarness(t, false)

	for _, path := range []string{"/unexisting_page/", "/group/does-not-exist/", "/profile/nobody/", "/posts/999/", "/posts/abc/"} {
		t.Run(path, func(t *testing.T) {
			resp, body := h.get(path, nil)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
			usesTemplate(t, body, "core/404")
		})
	}
}

func TestGroupPagination(t *testing.T) {
	h := newHarness(t, false)
	author := testutil.MakeUser(t, h.db, "leo")
	group := testutil.MakeGroup(t, h.db, "tolstoy")
	testutil.MakePosts(t, h.db, author, 13, testutil.InGroup(group))
	testutil.MakePosts(t, h.db, author, 2)

	tests := []struct {
		query string
		count int
	}{
		{"", 10},
		{"?page=2", 3},
		{"?page=99", 3},
		{"?page=abc", 10},
	}
	for _, tt := range tests {
		t.Run("page"+tt.query, func(t *testing.T) {
			resp, body := h.get("/group/tolstoy/"+tt.query, nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.count, strings.Count(body, `class="post"`))
		})
	}

	_, body := h.get("/", nil)
	assert.Equal(t, 10, strings.Count(body, `class="post"`))
	_, body = h.get("/?page=2", nil)
	assert.Equal(t, 5, strings.Count(body, `class="post"`))
}

func TestCreatePost(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")
	group := testutil.MakeGroup(t, h.db, "tolstoy")
	cookie := h.cookieFor(leo)

	t.Run("form renders", func(t *testing.T) {
		resp, body := h.get("/create/", cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		usesTemplate(t, body, "posts/create_post")
		assert.Contains(t, body, `value="`+strconv.FormatUint(uint64(group.ID), 10)+`"`)
	})

	t.Run("author is the viewer", func(t *testing.T) {
		form := url.Values{"text": {"Anna Karenina"}, "group": {strconv.FormatUint(uint64(group.ID), 10)}, "author": {"999"}}
		resp, _ := h.postForm("/create/", form, cookie)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/profile/leo/", resp.Header.Get(fiber.HeaderLocation))

		var post models.Post
		require.NoError(t, h.db.Order("id DESC").First(&post).Error)
		assert.Equal(t, leo.ID, post.AuthorID)
		assert.Equal(t, "Anna Karenina", post.Text)
		require.NotNil(t, post.GroupID)
		assert.Equal(t, group.ID, *post.GroupID)
	})

	t.Run("blank text re-renders the form", func(t *testing.T) {
		var before int64
		h.db.Model(&models.Post{}).Count(&before)

		resp, body := h.postForm("/create/", url.Values{"text": {"   "}}, cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		usesTemplate(t, body, "posts/create_post")
		assert.Contains(t, body, "This field is required.")

		var after int64
		h.db.Model(&models.Post{}).Count(&after)
		assert.Equal(t, before, after)
	})

	t.Run("unknown group is a field error", func(t *testing.T) {
		resp, body := h.postForm("/create/", url.Values{"text": {"x"}, "group": {"nope"}}, cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Select a valid choice.")
	})
}

func TestCreatePostWithImage(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")

	token := h.csrfCookie()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField(csrfField, token.Value))
	require.NoError(t, w.WriteField("text", "With a picture"))
	part, err := w.CreateFormFile("image", "small.png")
	require.NoError(t, err)
	_, err = part.Write(testutil.TinyPNG(t, 4, 4))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/create/", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, _ := h.do(req, h.cookieFor(leo), token)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, h.db.First(&post).Error)
	assert.True(t, strings.HasPrefix(post.Image, "posts/"))

	_, body := h.get("/", nil)
	assert.Contains(t, body, "/media/"+post.Image)
}

func TestEditPost(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")
	sonya := testutil.MakeUser(t, h.db, "sonya")
	post := testutil.MakePost(t, h.db, leo, testutil.WithText("draft"))
	editURL := postURL(post.ID) + "edit/"

	t.Run("author sees the form", func(t *testing.T) {
		resp, body := h.get(editURL, h.cookieFor(leo))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		usesTemplate(t, body, "posts/create_post")
		assert.Contains(t, body, "draft")
	})

	t.Run("non-author is redirected", func(t *testing.T) {
		resp, _ := h.get(editURL, h.cookieFor(sonya))
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, postURL(post.ID), resp.Header.Get(fiber.HeaderLocation))

		resp, _ = h.postForm(editURL, url.Values{"text": {"hijacked"}}, h.cookieFor(sonya))
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)

		var got models.Post
		require.NoError(t, h.db.First(&got, post.ID).Error)
		assert.Equal(t, "draft", got.Text)
	})

	t.Run("author saves", func(t *testing.T) {
		resp, _ := h.postForm(editURL, url.Values{"text": {"final"}}, h.cookieFor(leo))
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, postURL(post.ID), resp.Header.Get(fiber.HeaderLocation))

		var got models.Post
		require.NoError(t, h.db.First(&got, post.ID).Error)
		assert.Equal(t, "final", got.Text)
		assert.Equal(t, leo.ID, got.AuthorID)
	})
}

func TestComments(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")
	reader := testutil.MakeUser(t, h.db, "reader")
	post := testutil.MakePost(t, h.db, leo)
	commentURL := postURL(post.ID) + "comment/"

	countComments := func() int64 {
		var n int64
		h.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n)
		return n
	}

	resp, _ := h.postForm(commentURL, url.Values{"text": {"anonymous"}}, nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Zero(t, countComments())

	resp, body := h.postForm(commentURL, url.Values{"text": {""}}, h.cookieFor(reader))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	usesTemplate(t, body, "posts/post_detail")
	assert.Zero(t, countComments())

	resp, _ = h.postForm(commentURL, url.Values{"text": {"Great read"}}, h.cookieFor(reader))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, postURL(post.ID), resp.Header.Get(fiber.HeaderLocation))
	assert.EqualValues(t, 1, countComments())

	_, body = h.get(postURL(post.ID), nil)
	assert.Contains(t, body, "Great read")
}

func TestFollowFlow(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")
	reader := testutil.MakeUser(t, h.db, "reader")
	stranger := testutil.MakeUser(t, h.db, "stranger")
	testutil.MakePost(t, h.db, leo, testutil.WithText("from leo"))
	testutil.MakePost(t, h.db, stranger, testutil.WithText("from stranger"))
	cookie := h.cookieFor(reader)

	countFollows := func() int64 {
		var n int64
		h.db.Model(&models.Follow{}).Count(&n)
		return n
	}

	_, body := h.get("/follow/", cookie)
	usesTemplate(t, body, "posts/follow")
	assert.NotContains(t, body, "from leo")

	for range 2 {
		resp, _ := h.get("/profile/leo/follow/", cookie)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "/profile/leo/", resp.Header.Get(fiber.HeaderLocation))
	}
	assert.EqualValues(t, 1, countFollows())

	_, body = h.get("/follow/", cookie)
	assert.Contains(t, body, "from leo")
	assert.NotContains(t, body, "from stranger")

	_, body = h.get("/follow/", h.cookieFor(stranger))
	assert.NotContains(t, body, "from leo")

	_, body = h.get("/profile/leo/", cookie)
	assert.Contains(t, body, "Unfollow")

	resp, _ := h.get("/profile/leo/unfollow/", cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Zero(t, countFollows())

	_, body = h.get("/follow/", cookie)
	assert.NotContains(t, body, "from leo")
}

func TestSelfFollowIsIgnored(t *testing.T) {
	h := newHarness(t, false)
	leo := testutil.MakeUser(t, h.db, "leo")

	resp, _ := h.get("/profile/leo/follow/", h.cookieFor(leo))
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get(fiber.HeaderLocation))

	var n int64
	h.db.Model(&models.Follow{}).Count(&n)
	assert.Zero(t, n)
}

func TestIndexCache(t *testing.T) {
	h := newHarness(t, true)
	leo := testutil.MakeUser(t, h.db, "leo")
	testutil.MakePost(t, h.db, leo, testutil.WithText("first version"))

	resp, body := h.get("/", nil)
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))
	assert.Contains(t, body, "first version")

	testutil.MakePost(t, h.db, leo, testutil.WithText("written later"))

	resp, body = h.get("/", nil)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))
	assert.NotContains(t, body, "written later")

	// Another viewer gets a separate entry.
	_, body = h.get("/", h.cookieFor(leo))
	assert.Contains(t, body, "written later")
}

func TestIndexCacheDisabledByFlag(t *testing.T) {
	h := newHarness(t, false, func(c *config.Config) { c.FeatureFlags = "index_cache=off" })
	leo := testutil.MakeUser(t, h.db, "leo")

	h.get("/", nil)
	testutil.MakePost(t, h.db, leo, testutil.WithText("fresh"))
	_, body := h.get("/", nil)
	assert.Contains(t, body, "fresh")
}

func TestSignupLoginLogout(t *testing.T) {
	h := newHarness(t, true)

	resp, body := h.postForm("/auth/signup/", url.Values{
		"username":  {"natasha"},
		"email":     {"natasha@example.com"},
		"password1": {"war-and-peace-1869"},
		"password2": {"war-and-peace-1869"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode, body)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	resp, body = h.postForm("/auth/login/", url.Values{
		"username": {"natasha"},
		"password": {"wrong"},
	}, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	usesTemplate(t, body, "users/login")

	resp, _ = h.postForm("/auth/login/?next=/follow/", url.Values{
		"username": {"natasha"},
		"password": {"war-and-peace-1869"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/follow/", resp.Header.Get(fiber.HeaderLocation))

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == h.s.config.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	resp, _ = h.get("/follow/", session)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = h.postForm("/auth/logout/", url.Values{}, session)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	usesTemplate(t, body, "users/logged_out")

	resp, _ = h.get("/follow/", session)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestFormsRequireCSRFToken(t *testing.T) {
	h := newHarness(t, true)
	leo := testutil.MakeUser(t, h.db, "leo")
	session := h.cookieFor(leo)

	form := url.Values{"text": {"forged"}}
	req := httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, _ := h.do(req, session)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// A token from the cookie alone is not enough; the form must echo it.
	req = httptest.NewRequest(http.MethodPost, "/create/", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, _ = h.do(req, session, h.csrfCookie())
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var n int64
	require.NoError(t, h.db.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)

	// Pages carry the token that the cookie holds.
	token := h.csrfCookie()
	_, body := h.do(httptest.NewRequest(http.MethodGet, "/create/", nil), session, token)
	assert.Contains(t, body, `name="csrf_token" value="`+token.Value+`"`)
}

func TestLogoutIgnoresGet(t *testing.T) {
	h := newHarness(t, true)
	leo := testutil.MakeUser(t, h.db, "leo")
	session := h.cookieFor(leo)

	resp, _ := h.get("/auth/logout/", session)
	assert.NotEqual(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = h.get("/follow/", session)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "session survives a cross-site GET")
}

func TestLoginRejectsExternalNext(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.s.authService.Signup(t.Context(), service.SignupInput{
		Username:  "pierre",
		Email:     "pierre@example.com",
		Password1: "war-and-peace-1869",
		Password2: "war-and-peace-1869",
	})
	require.NoError(t, err)

	resp, _ := h.postForm("/auth/login/", url.Values{
		"username": {"pierre"},
		"password": {"war-and-peace-1869"},
		"next":     {"//evil.example.com/"},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, true)

	resp, body := h.get("/health/live", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"up"`)

	resp, body = h.get("/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"database":"healthy"`)
	assert.Contains(t, body, `"redis":"healthy"`)
}

func TestSecurityHeaders(t *testing.T) {
	h := newHarness(t, false)
	resp, _ := h.get("/", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
